// Package scripts defines the tagged deploy scripts and runs them in order.
package scripts

import (
	"context"
	"fmt"
	"strings"

	"github.com/lmittmann/w3"

	"github.com/nvitorovic/scaffold-eth-2/pkg/sequencer"
)

// Contract names as they appear in the compiled artifacts
const (
	PoolAndSwap       = "PoolAndSwap"
	ERC20TokenFactory = "ERC20TokenFactory"
	SimpleAMM         = "SimpleAMM"
	ERC20Token        = "ERC20Token"
)

var (
	// TestTokenSupply is minted to the operator for every created token
	TestTokenSupply = w3.I("100000000000000000000000000000000 ether")
	// DistributionAmount is sent to each ephemeral account by the factory script
	DistributionAmount = w3.I("100000000 ether")
	// DistributionRecipients is the number of ephemeral accounts funded by the factory script
	DistributionRecipients = 3
	// LiquidityProviderAmount is given to the liquidity provider of each pool token
	LiquidityProviderAmount = w3.I("100000000000000 ether")
	// InitialLiquidity is deposited on each side of the pool, in token base units
	InitialLiquidity = w3.I("10000000")
)

// Script is one tagged deploy script. Build returns a fresh sequence each time.
type Script struct {
	Name  string
	Tags  []string
	Build func(env *Env) *sequencer.Sequence
}

func (s Script) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// All returns the scripts in execution order.
func All() []Script {
	return []Script{
		DeployPool(),
		DeployERC20Factory(),
		DeploySimpleAMM(),
	}
}

// SelectByTags keeps the scripts carrying any of tags, preserving order. No tags selects everything.
func SelectByTags(scripts []Script, tags []string) ([]Script, error) {
	if len(tags) == 0 {
		return scripts, nil
	}

	var selected []Script
	matched := make(map[string]bool, len(tags))
	for _, s := range scripts {
		hit := false
		for _, tag := range tags {
			if s.HasTag(tag) {
				matched[strings.ToLower(tag)] = true
				hit = true
			}
		}
		if hit {
			selected = append(selected, s)
		}
	}

	var unknown []string
	for _, tag := range tags {
		if !matched[strings.ToLower(tag)] {
			unknown = append(unknown, tag)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("no deploy script tagged %s (known tags: %s)", strings.Join(unknown, ", "), strings.Join(Tags(scripts), ", "))
	}
	return selected, nil
}

// Tags lists every tag known to scripts once, in script order.
func Tags(scripts []Script) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, s := range scripts {
		for _, tag := range s.Tags {
			if !seen[strings.ToLower(tag)] {
				seen[strings.ToLower(tag)] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// Run builds and runs each script in order, stopping at the first failure.
func Run(ctx context.Context, env *Env, scripts []Script) error {
	for _, s := range scripts {
		if err := s.Build(env).Run(ctx); err != nil {
			return err
		}
	}
	return nil
}
