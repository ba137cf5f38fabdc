package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"linkStake/internal/model"
	"linkStake/internal/stake"
	"linkStake/internal/storage"
	"linkStake/internal/storage/postgres"
	"linkStake/internal/wallet"
)

type unstakeOutput struct {
	TxHash  string                `json:"tx_hash"`
	Outcome *model.UnstakeOutcome `json:"outcome,omitempty"`
	View    stake.View            `json:"view"`
}

func newUnstakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unstake",
		Short: "Withdraw staked LP tokens and claim rewards",
		RunE:  runUnstake,
	}
	cmd.Flags().String("amount", "", "LP amount to unstake")
	cmd.Flags().Bool("max", false, "unstake the full staked balance")
	cmd.Flags().String("key-file", "", "V3 keystore file")
	cmd.Flags().String("passphrase", "", "keystore passphrase (prefer STAKE_PASSPHRASE)")
	cmd.Flags().String("private-key", "", "hex private key (prefer STAKE_PRIVATE_KEY)")
	cmd.Flags().Bool("confirm", false, "ask before signing")
	cmd.Flags().Bool("no-wait", false, "return after submission")
	cmd.Flags().Duration("poll-interval", 15*time.Second, "staked balance poll interval")
	cmd.Flags().Duration("confirm-timeout", 10*time.Minute, "maximum wait for the unstake to settle")
	cmd.Flags().String("tx-log", "./data/transactions.jsonl", "transaction log JSONL path, empty keeps records in memory")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for transaction tracking")
	cmd.Flags().String("metrics-listen", "", "serve /metrics on this address while running")
	addPairFlags(cmd.Flags())
	addChainFlags(cmd.Flags())
	return cmd
}

func runUnstake(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync()
	logger := e.logger

	amount, _ := cmd.Flags().GetString("amount")
	useMax, _ := cmd.Flags().GetBool("max")
	if (amount == "") == !useMax {
		return fmt.Errorf("exactly one of --amount or --max is required")
	}

	signer, err := loadSigner(cmd)
	if err != nil {
		return err
	}
	if confirm, _ := cmd.Flags().GetBool("confirm"); confirm {
		signer = wallet.NewConfirmingWallet(signer, cmd.InOrStdin(), cmd.ErrOrStderr())
	}

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
	rewards, contract, err := e.rewardsContract(pos, client)
	if err != nil {
		return err
	}
	if contract == nil {
		return fmt.Errorf("no reward pool for pair %s (%s)", pos.Label, pos.Liquidity.Address)
	}
	checkStakingToken(ctx, rewards, pos.Liquidity.Address, logger)

	trackers := localTracker(e.cfg.TxLog)
	if e.cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, e.cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		trackers = append(trackers, store)
	}

	reg := prometheus.NewRegistry()
	metrics, err := stake.NewMetrics(reg)
	if err != nil {
		return err
	}
	listen, _ := cmd.Flags().GetString("metrics-listen")
	if listen != "" {
		srv := &http.Server{Addr: listen, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	ctrl := stake.NewController(stake.Options{
		ChainID:             e.cfg.ChainID,
		Liquidity:           pos.Liquidity,
		PairLabel:           pos.Label,
		Signer:              signer,
		Contract:            contract,
		Receipts:            client,
		Blocks:              client,
		Tracker:             trackers,
		Metrics:             metrics,
		Logger:              logger,
		ReceiptPollInterval: 2 * time.Second,
	})
	defer ctrl.Close()

	if _, err := ctrl.Refresh(ctx); err != nil {
		return err
	}
	if useMax {
		err = ctrl.Max()
	} else {
		err = ctrl.SetInput(amount)
	}
	if err != nil {
		return err
	}

	view := ctrl.View()
	logger.Info("unstake start",
		zap.String("pair", pos.Label),
		zap.String("lp_token", pos.Liquidity.Address),
		zap.String("account", ctrl.Account().Hex()),
		zap.String("amount", view.Input),
		zap.String("staked", view.StakedDisplay),
		zap.String("pg_dsn", redactDSN(e.cfg.PGDSN)),
	)

	tx, err := ctrl.Submit(ctx)
	if err != nil {
		switch {
		case wallet.IsUserRejection(err):
			fmt.Fprintln(cmd.ErrOrStderr(), "unstake cancelled")
			return nil
		case errors.Is(err, stake.ErrNotReady):
			return fmt.Errorf("%w: %s", err, view.Label)
		default:
			return err
		}
	}

	out := unstakeOutput{TxHash: tx.Hash().Hex()}
	if noWait, _ := cmd.Flags().GetBool("no-wait"); noWait {
		out.View = ctrl.View()
		return printJSON(cmd.OutOrStdout(), out)
	}

	waitCtx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmTimeout)
	defer cancel()

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if err := ctrl.Watch(waitCtx, e.cfg.PollInterval); err != nil && waitCtx.Err() == nil {
			logger.Warn("balance watch stopped", zap.Error(err))
		}
	}()

	outcome, err := ctrl.AwaitConfirmation(waitCtx, tx)
	switch {
	case errors.Is(err, stake.ErrReverted):
		cancel()
		<-watchDone
		return err
	case err != nil:
		logger.Warn("receipt wait failed, relying on balance polling", zap.Error(err))
	default:
		out.Outcome = &outcome
	}

	if err := ctrl.WaitIdle(waitCtx); err != nil {
		cancel()
		<-watchDone
		return fmt.Errorf("unstake %s did not settle: %w", out.TxHash, err)
	}
	cancel()
	<-watchDone

	out.View = ctrl.View()
	return printJSON(cmd.OutOrStdout(), out)
}

// localTracker records transactions to the JSONL log, or in memory when no log
// path is configured.
func localTracker(txLog string) storage.MultiTxStore {
	if txLog == "" {
		return storage.MultiTxStore{storage.NewMemoryTxStore()}
	}
	return storage.MultiTxStore{storage.NewJsonlStorage(txLog)}
}

func loadSigner(cmd *cobra.Command) (wallet.Signer, error) {
	keyFile, _ := cmd.Flags().GetString("key-file")
	privateKey, _ := cmd.Flags().GetString("private-key")
	if privateKey == "" {
		privateKey = os.Getenv("STAKE_PRIVATE_KEY")
	}
	switch {
	case keyFile != "":
		passphrase, _ := cmd.Flags().GetString("passphrase")
		if passphrase == "" {
			passphrase = os.Getenv("STAKE_PASSPHRASE")
		}
		return wallet.FromKeystore(keyFile, passphrase)
	case privateKey != "":
		return wallet.FromHex(privateKey)
	default:
		return nil, fmt.Errorf("--key-file or --private-key is required")
	}
}
