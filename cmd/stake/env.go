package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"linkStake/internal/chain"
	"linkStake/internal/config"
	"linkStake/internal/connector"
	"linkStake/internal/dex"
	"linkStake/internal/liquidity"
	"linkStake/internal/model"
	"linkStake/internal/pool"
)

// env is the wiring shared by every subcommand.
type env struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *connector.Registry
	resolver *pool.Resolver
	deriver  liquidity.Deriver
	meta     *dex.TokenMetaCache
}

// position is a pair resolved to its LP token and reward pool.
type position struct {
	Liquidity  model.LiquidityToken
	Label      string
	Resolution pool.Resolution
}

func addChainFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "Ethereum RPC URL (network connector)")
	flags.Uint64("chain-id", 1, "chain id")
	flags.String("injected-path", "", "IPC path or URL of a local signing node")
	flags.String("match-policy", "case-insensitive", "pool address comparison (case-insensitive, exact)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func addPairFlags(flags *pflag.FlagSet) {
	flags.String("token-a", "", "first pair token address or ETH (empty means wrapped native)")
	flags.String("token-b", "", "second pair token address or ETH (empty means wrapped native)")
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	registry := connector.NewRegistry(connector.Settings{
		ChainID:             cfg.ChainID,
		NetworkURL:          cfg.RPCURL,
		InjectedPath:        cfg.Connectors.InjectedPath,
		InjectedChainIDs:    cfg.Connectors.InjectedChainIDs,
		WalletConnectBridge: cfg.Connectors.WalletConnectBridge,
		WalletLinkAppName:   cfg.Connectors.WalletLinkAppName,
		WalletLinkLogoURL:   cfg.Connectors.WalletLinkLogoURL,
	})

	return &env{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		resolver: pool.NewResolver(cfg.Pools, pool.ParseMatchPolicy(cfg.MatchPolicy)),
		deriver:  liquidity.NewDeriver(cfg.Factory, cfg.InitCodeHash),
		meta:     dex.NewTokenMetaCache(),
	}, nil
}

func (e *env) chainIDBig() *big.Int {
	return new(big.Int).SetUint64(e.cfg.ChainID)
}

// dial connects through the first connector that serves the configured chain and
// checks that the node reports the same chain id.
func (e *env) dial(ctx context.Context) (*chain.Client, error) {
	client, kind, err := e.registry.DialAny(ctx, e.cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	chainID, err := client.GetChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if chainID.Uint64() != e.cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("%w: node reports %s, configured %d", connector.ErrUnsupportedChain, chainID, e.cfg.ChainID)
	}
	e.logger.Info("connected",
		zap.String("connector", string(kind)),
		zap.Uint64("chain_id", e.cfg.ChainID),
	)
	return client, nil
}

// token returns nil for an empty or native id so the deriver substitutes the
// wrapped native token. caller may be nil, in which case no metadata is fetched.
func (e *env) token(ctx context.Context, caller dex.Caller, id string) (*model.TokenMeta, error) {
	id = strings.TrimSpace(id)
	if id == "" || liquidity.IsNativeSymbol(id) {
		return nil, nil
	}
	if !common.IsHexAddress(id) {
		return nil, fmt.Errorf("invalid token %q", id)
	}
	addr := common.HexToAddress(id)
	if caller == nil {
		return &model.TokenMeta{ChainID: e.cfg.ChainID, Address: addr.Hex(), Decimals: 18}, nil
	}
	meta, err := e.meta.TokenMeta(ctx, caller, e.cfg.ChainID, addr, e.logger)
	if err != nil {
		return nil, fmt.Errorf("token %s metadata: %w", addr.Hex(), err)
	}
	return &meta, nil
}

func (e *env) position(ctx context.Context, caller dex.Caller, tokenA, tokenB string, resolver *pool.Resolver) (position, error) {
	a, err := e.token(ctx, caller, tokenA)
	if err != nil {
		return position{}, err
	}
	b, err := e.token(ctx, caller, tokenB)
	if err != nil {
		return position{}, err
	}
	lt, err := e.deriver.LiquidityToken(e.cfg.ChainID, a, b)
	if err != nil {
		return position{}, err
	}
	if resolver == nil {
		resolver = e.resolver
	}
	return position{
		Liquidity:  lt,
		Label:      symbol(e.cfg.ChainID, a) + "/" + symbol(e.cfg.ChainID, b),
		Resolution: resolver.Resolve(lt.Address),
	}, nil
}

func symbol(chainID uint64, meta *model.TokenMeta) string {
	if meta == nil {
		return liquidity.WrappedNative(chainID).Symbol
	}
	if meta.Symbol != "" {
		return meta.Symbol
	}
	return meta.Address
}

func printJSON(w io.Writer, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
