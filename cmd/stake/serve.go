package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"linkStake/internal/api"
	"linkStake/internal/dex"
	"linkStake/internal/price"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve prices, pool lookups and staked balances over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().Duration("price-interval", time.Minute, "price refresh interval")
	cmd.Flags().Duration("price-max-age", 5*time.Minute, "age after which prices are reported stale")
	addPriceFlags(cmd.Flags())
	addChainFlags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync()
	logger := e.logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := e.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	sinks, pg, closeSinks, err := e.priceSinks(ctx, "")
	if err != nil {
		return err
	}
	defer closeSinks()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	priceMetrics, err := price.NewMetrics(reg)
	if err != nil {
		return err
	}

	store := price.NewStore(time.Now)
	refresher := price.NewRefresher(e.priceSources(), client, store, logger, sinks...).WithMetrics(priceMetrics)

	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		if err := refresher.Run(ctx, e.cfg.Prices.Interval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("price refresher stopped", zap.Error(err))
		}
	}()

	chainID := e.chainIDBig()
	deps := api.Deps{
		ChainID:     e.cfg.ChainID,
		Prices:      store,
		PriceMaxAge: e.cfg.Prices.MaxAge,
		Resolver:    e.resolver,
		Balances: func(ctx context.Context, rewards, account common.Address) (*big.Int, error) {
			contract, err := dex.NewStakingRewards(rewards, client, chainID)
			if err != nil {
				return nil, err
			}
			return contract.BalanceOf(ctx, account)
		},
		Gatherer: reg,
		Logger:   logger,
	}
	if pg != nil {
		deps.Transactions = pg
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              e.cfg.Listen,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("serve start",
			zap.String("listen", e.cfg.Listen),
			zap.Int("pools", len(e.cfg.Pools)),
			zap.Duration("price_interval", e.cfg.Prices.Interval),
			zap.String("pg_dsn", redactDSN(e.cfg.PGDSN)),
		)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			<-refreshDone
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	<-refreshDone
	return nil
}
