package scripts

import (
	"context"

	"github.com/nvitorovic/scaffold-eth-2/pkg/chain"
	"github.com/nvitorovic/scaffold-eth-2/pkg/sequencer"
	"github.com/nvitorovic/scaffold-eth-2/pkg/token"
	"github.com/nvitorovic/scaffold-eth-2/pkg/verify"
)

func DeploySimpleAMM() Script {
	return Script{
		Name: "03_deploy_simple_amm",
		// also runs with the factory tag, which provides its tokens
		Tags: []string{"SimpleAMM", "Erc20TokenFactory"},
		Build: func(env *Env) *sequencer.Sequence {
			var (
				factory  *token.Factory
				buz, baz *token.ERC20
				amm      *token.AMM
				lp       token.Transactor
			)

			return sequencer.New("03_deploy_simple_amm", env.Logger).
				Add("Fund deployer", func(ctx context.Context) error {
					return env.FundOperator(ctx, env.Operator.Address())
				}).
				Add("Load "+ERC20TokenFactory, func(ctx context.Context) error {
					var err error
					factory, err = deployFactory(ctx, env)
					return err
				}).
				Add("Create tokens BUZ and BAZ", func(ctx context.Context) error {
					var err error
					if buz, err = env.CreateResource(ctx, factory, "Buz Token", "BUZ", TestTokenSupply); err != nil {
						return err
					}
					baz, err = env.CreateResource(ctx, factory, "Baz Token", "BAZ", TestTokenSupply)
					return err
				}).
				Add("Deploy "+SimpleAMM, func(ctx context.Context) error {
					dep, err := env.DeployContract(ctx, SimpleAMM, buz.Address(), baz.Address())
					if err != nil {
						return err
					}
					amm = token.NewAMM(dep.Address)
					return nil
				}).
				Add("Create liquidity provider", func(ctx context.Context) error {
					key, err := chain.NewEphemeralKey()
					if err != nil {
						return err
					}
					lp = env.NewAccount(key)
					env.Logger.Info("deployer: %s, liquidityProvider: %s", env.Operator.Address().Hex(), lp.Address().Hex())
					return env.FundOperator(ctx, lp.Address())
				}).
				Add("Transfer pool tokens to liquidity provider", func(ctx context.Context) error {
					for _, tok := range []*token.ERC20{buz, baz} {
						if _, err := tok.Transfer(ctx, env.Operator, lp.Address(), LiquidityProviderAmount); err != nil {
							return err
						}
					}
					return nil
				}).
				Add("Approve "+SimpleAMM, func(ctx context.Context) error {
					for _, tok := range []*token.ERC20{buz, baz} {
						if _, err := tok.Approve(ctx, lp, amm.Address(), LiquidityProviderAmount); err != nil {
							return err
						}
					}
					return nil
				}).
				Add("Add liquidity", func(ctx context.Context) error {
					_, err := amm.AddLiquidity(ctx, lp, InitialLiquidity, InitialLiquidity)
					return err
				}).
				AddBestEffort("Verify "+ERC20Token+"s", func(ctx context.Context) error {
					return env.Verify(ctx,
						verify.Contract{Name: ERC20Token, Address: baz.Address()},
						verify.Contract{Name: ERC20Token, Address: buz.Address()},
					)
				})
		},
	}
}
