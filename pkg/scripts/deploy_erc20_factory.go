package scripts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nvitorovic/scaffold-eth-2/pkg/distribute"
	"github.com/nvitorovic/scaffold-eth-2/pkg/sequencer"
	"github.com/nvitorovic/scaffold-eth-2/pkg/token"
	"github.com/nvitorovic/scaffold-eth-2/pkg/verify"
)

func DeployERC20Factory() Script {
	return Script{
		Name: "02_deploy_erc20_factory",
		Tags: []string{"Erc20TokenFactory"},
		Build: func(env *Env) *sequencer.Sequence {
			var (
				factory *token.Factory
				tst     *token.ERC20
			)

			return sequencer.New("02_deploy_erc20_factory", env.Logger).
				Add("Fund deployer", func(ctx context.Context) error {
					return env.FundOperator(ctx, env.Operator.Address())
				}).
				Add("Deploy "+ERC20TokenFactory, func(ctx context.Context) error {
					var err error
					factory, err = deployFactory(ctx, env)
					return err
				}).
				Add("Create token TST", func(ctx context.Context) error {
					var err error
					tst, err = env.CreateResource(ctx, factory, "Test", "TST", TestTokenSupply)
					return err
				}).
				Add(fmt.Sprintf("Distribute TST to %d accounts", DistributionRecipients), func(ctx context.Context) error {
					recipients, err := distribute.RandomRecipients(DistributionRecipients)
					if err != nil {
						return err
					}
					_, err = env.Distribute(ctx, tst, recipients, DistributionAmount)
					return err
				}).
				AddBestEffort("Verify "+ERC20Token, func(ctx context.Context) error {
					return env.Verify(ctx, verify.Contract{Name: ERC20Token, Address: tst.Address()})
				})
		},
	}
}

// deployFactory deploys (or reuses) the token factory and binds its TokenCreated event.
func deployFactory(ctx context.Context, env *Env) (*token.Factory, error) {
	dep, err := env.DeployContract(ctx, ERC20TokenFactory)
	if err != nil {
		return nil, err
	}
	if dep.Address == (common.Address{}) {
		return nil, fmt.Errorf("%s deployed at zero address", ERC20TokenFactory)
	}
	return token.NewFactory(dep.Address, dep.Artifact.ABI)
}
