package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"linkStake/internal/pool"
)

type resolveOutput struct {
	Pair           string `json:"pair"`
	RewardsAddress string `json:"rewards_address,omitempty"`
	Found          bool   `json:"found"`
	Policy         string `json:"policy"`
}

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the rewards contract for a pair",
		RunE:  runResolve,
	}
	cmd.Flags().String("pair", "", "LP pair address")
	cmd.Flags().Bool("exact", false, "compare pair addresses as raw strings")
	addPairFlags(cmd.Flags())
	addChainFlags(cmd.Flags())
	return cmd
}

func runResolve(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	resolver := e.resolver
	if exact, _ := cmd.Flags().GetBool("exact"); exact {
		resolver = pool.NewResolver(e.cfg.Pools, pool.MatchExact)
	}

	pair, _ := cmd.Flags().GetString("pair")
	if pair == "" {
		tokenA, _ := cmd.Flags().GetString("token-a")
		tokenB, _ := cmd.Flags().GetString("token-b")
		if tokenA == "" && tokenB == "" {
			return fmt.Errorf("--pair or --token-a/--token-b is required")
		}
		pos, err := e.position(context.Background(), nil, tokenA, tokenB, resolver)
		if err != nil {
			return err
		}
		pair = pos.Liquidity.Address
	}

	res := resolver.Resolve(pair)
	rewards, _ := res.RewardsAddress()
	return printJSON(cmd.OutOrStdout(), resolveOutput{
		Pair:           pair,
		RewardsAddress: rewards,
		Found:          res.Found,
		Policy:         resolver.Policy().String(),
	})
}
