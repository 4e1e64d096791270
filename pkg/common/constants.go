package common

import "time"

// Project structure constants
const (
	// DefaultConfigPath is where the deployer config is read from unless --config is set
	DefaultConfigPath = "config/config.yaml"

	// DefaultDeploymentsDir holds per-network deployment records
	DefaultDeploymentsDir = "deployments"

	// DefaultArtifactsDir holds compiled contract artifacts
	DefaultArtifactsDir = "artifacts"
)

// Chain defaults used when a network entry leaves them unset.
const (
	DefaultGasLimit    uint64 = 8_000_000
	DefaultConcurrency        = 4
	DefaultTimeout            = 10 * time.Minute
)

// Chain ids of the local development nodes (hardhat/anvil and ganache/geth --dev).
const (
	HardhatChainID int64 = 31337
	GanacheChainID int64 = 1337
)

// Funding methods understood by the devnet faucet.
const (
	FaucetNone     = "none"
	FaucetTransfer = "transfer"
	FaucetTenderly = "tenderly_setBalance"
	FaucetAnvil    = "anvil_setBalance"
	FaucetHardhat  = "hardhat_setBalance"
)
