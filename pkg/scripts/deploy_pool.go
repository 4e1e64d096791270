package scripts

import (
	"context"

	"github.com/nvitorovic/scaffold-eth-2/pkg/sequencer"
)

func DeployPool() Script {
	return Script{
		Name: "01_deploy_pool",
		Tags: []string{"DeployPool"},
		Build: func(env *Env) *sequencer.Sequence {
			return sequencer.New("01_deploy_pool", env.Logger).
				Add("Fund deployer", func(ctx context.Context) error {
					return env.FundOperator(ctx, env.Operator.Address())
				}).
				Add("Deploy "+PoolAndSwap, func(ctx context.Context) error {
					_, err := env.DeployContract(ctx, PoolAndSwap)
					return err
				})
		},
	}
}
