package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"linkStake/internal/chain"
	"linkStake/internal/dex"
	"linkStake/internal/model"
	"linkStake/internal/stake"
)

type balanceOutput struct {
	Liquidity      model.LiquidityToken `json:"liquidity_token"`
	RewardsAddress string               `json:"rewards_address,omitempty"`
	Earned         string               `json:"earned,omitempty"`
	View           stake.View           `json:"view"`
}

func newBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the staked position of an account",
		RunE:  runBalance,
	}
	cmd.Flags().String("account", "", "account address")
	cmd.Flags().String("amount", "", "amount to evaluate against the staked balance")
	addPairFlags(cmd.Flags())
	addChainFlags(cmd.Flags())
	return cmd
}

func runBalance(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	accountHex, _ := cmd.Flags().GetString("account")
	if !common.IsHexAddress(accountHex) {
		return fmt.Errorf("valid --account is required")
	}
	account := common.HexToAddress(accountHex)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := e.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	tokenA, _ := cmd.Flags().GetString("token-a")
	tokenB, _ := cmd.Flags().GetString("token-b")
	pos, err := e.position(ctx, client, tokenA, tokenB, nil)
	if err != nil {
		return err
	}

	out := balanceOutput{Liquidity: pos.Liquidity}
	rewards, contract, err := e.rewardsContract(pos, client)
	if err != nil {
		return err
	}

	ctrl := stake.NewController(stake.Options{
		ChainID:   e.cfg.ChainID,
		Liquidity: pos.Liquidity,
		PairLabel: pos.Label,
		Account:   account,
		Contract:  contract,
		Logger:    e.logger,
	})
	defer ctrl.Close()

	if rewards != nil {
		out.RewardsAddress = rewards.Address().Hex()
		checkStakingToken(ctx, rewards, pos.Liquidity.Address, e.logger)
		err := chain.WithRetry(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) error {
			_, err := ctrl.Refresh(ctx)
			return err
		})
		if err != nil {
			return err
		}
		if earned, err := rewards.Earned(ctx, account); err == nil {
			out.Earned = stake.FormatAmount(earned, 18)
		} else {
			e.logger.Debug("earned call failed", zap.Error(err))
		}
	} else {
		e.logger.Warn("no reward pool for pair", zap.String("pair", pos.Liquidity.Address))
	}

	if amount, _ := cmd.Flags().GetString("amount"); amount != "" {
		if err := ctrl.SetInput(amount); err != nil {
			return err
		}
	}

	out.View = ctrl.View()
	return printJSON(cmd.OutOrStdout(), out)
}

// rewardsContract binds the resolved rewards address. Both results are nil when the
// pair has no reward pool.
func (e *env) rewardsContract(pos position, backend dex.Transactor) (*dex.StakingRewards, stake.Contract, error) {
	addr, ok := pos.Resolution.RewardsAddress()
	if !ok {
		return nil, nil, nil
	}
	if !common.IsHexAddress(addr) {
		return nil, nil, fmt.Errorf("configured rewards address %q is invalid", addr)
	}
	rewards, err := dex.NewStakingRewards(common.HexToAddress(addr), backend, e.chainIDBig())
	if err != nil {
		return nil, nil, err
	}
	return rewards, rewards, nil
}

type stakingTokenReader interface {
	Address() common.Address
	StakingToken(ctx context.Context) (common.Address, error)
}

// checkStakingToken warns when the rewards contract stakes something other than
// the derived LP token. It reports whether the tokens matched.
func checkStakingToken(ctx context.Context, rewards stakingTokenReader, lpToken string, logger *zap.Logger) bool {
	staked, err := rewards.StakingToken(ctx)
	if err != nil {
		logger.Warn("read staking token failed", zap.String("rewards", rewards.Address().Hex()), zap.Error(err))
		return false
	}
	if !common.IsHexAddress(lpToken) || staked != common.HexToAddress(lpToken) {
		logger.Warn("rewards contract stakes a different token",
			zap.String("rewards", rewards.Address().Hex()),
			zap.String("staking_token", staked.Hex()),
			zap.String("lp_token", lpToken),
		)
		return false
	}
	return true
}
