package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"linkStake/internal/price"
	"linkStake/internal/storage"
	"linkStake/internal/storage/postgres"
	"linkStake/internal/storage/redis"
)

func newPricesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Refresh base, token and LP token prices",
		RunE:  runPrices,
	}
	cmd.Flags().Duration("interval", 0, "refresh interval, 0 refreshes once")
	cmd.Flags().String("out", "", "append snapshots to this JSONL file")
	addPriceFlags(cmd.Flags())
	addChainFlags(cmd.Flags())
	return cmd
}

func addPriceFlags(flags *pflag.FlagSet) {
	flags.String("price-provider-url", "", "HTTP price provider URL")
	flags.StringSlice("price-pairs", nil, "V2 pair addresses to price (comma-separated)")
	flags.String("pg-dsn", "", "Postgres DSN for price snapshots")
	flags.String("redis-addr", "", "Redis address for the latest price cache")
	flags.Int("max-retries", 3, "maximum retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
}

// priceSinks opens the configured snapshot sinks. The returned closer releases them.
func (e *env) priceSinks(ctx context.Context, out string) ([]price.Sink, *postgres.Store, func(), error) {
	var (
		sinks   []price.Sink
		closers []func()
		pg      *postgres.Store
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(out))
	}
	if e.cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, e.cfg.PGDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		sinks = append(sinks, store)
		pg = store
	}
	if e.cfg.Redis.Addr != "" {
		cache := redis.NewPriceCache(e.cfg.Redis.Addr, e.cfg.Redis.Password, e.cfg.Redis.DB, e.cfg.Redis.TTL)
		closers = append(closers, func() { _ = cache.Close() })
		if err := cache.Ping(ctx); err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		sinks = append(sinks, cache)
	}
	return sinks, pg, closeAll, nil
}

func (e *env) priceSources() price.Sources {
	return price.Sources{
		ChainID:      e.cfg.ChainID,
		ETHUSDFeed:   e.cfg.Prices.ETHUSDFeed,
		LinkUSDFeed:  e.cfg.Prices.LinkUSDFeed,
		WETH:         e.cfg.Prices.WETH,
		Link:         e.cfg.Prices.Link,
		Pairs:        e.cfg.Prices.Pairs,
		ProviderURL:  e.cfg.Prices.ProviderURL,
		MaxRetries:   e.cfg.MaxRetries,
		RetryBackoff: e.cfg.RetryBackoff,
	}
}

func runPrices(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := e.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	out, _ := cmd.Flags().GetString("out")
	sinks, _, closeSinks, err := e.priceSinks(ctx, out)
	if err != nil {
		return err
	}
	defer closeSinks()

	store := price.NewStore(time.Now)
	refresher := price.NewRefresher(e.priceSources(), client, store, e.logger, sinks...)

	interval, _ := cmd.Flags().GetDuration("interval")
	e.logger.Info("prices start",
		zap.Int("pairs", len(e.cfg.Prices.Pairs)),
		zap.Int("sinks", len(sinks)),
		zap.Duration("interval", interval),
		zap.String("pg_dsn", redactDSN(e.cfg.PGDSN)),
	)

	if interval <= 0 {
		state, err := refresher.Refresh(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), state.Model())
	}

	if err := refresher.Run(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
