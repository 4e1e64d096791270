package devnet

// Default top-up used when faucet.amount is not configured (1000 ether)
const FUND_VALUE = "1000000000000000000000"

// Environment switch used by tests and CI to bypass every faucet call
const SKIP_FUNDING_ENV = "SKIP_FUNDING"

// JSON-RPC method that seals a block on hardhat, anvil and ganache
const MINE_METHOD = "evm_mine"
