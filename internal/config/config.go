package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"linkStake/internal/model"
)

const envPrefix = "STAKE"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL         string
	ChainID        uint64
	Factory        common.Address
	InitCodeHash   common.Hash
	MatchPolicy    string
	Pools          []model.RewardPool
	Connectors     Connectors
	Prices         Prices
	PGDSN          string
	Redis          Redis
	TxLog          string
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Listen         string
	LogLevel       string
}

// Connectors configures the wallet connector registry.
type Connectors struct {
	InjectedPath        string
	InjectedChainIDs    []uint64
	WalletConnectBridge string
	WalletLinkAppName   string
	WalletLinkLogoURL   string
}

// Prices names the on-chain and HTTP price sources.
type Prices struct {
	ETHUSDFeed  common.Address
	LinkUSDFeed common.Address
	WETH        common.Address
	Link        common.Address
	Pairs       []common.Address
	ProviderURL string
	Interval    time.Duration
	MaxAge      time.Duration
}

// Redis configures the price cache. An empty Addr disables it.
type Redis struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chain-id", uint64(1))
	v.SetDefault("factory", "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	v.SetDefault("init-code-hash", "0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")
	v.SetDefault("match-policy", "case-insensitive")
	v.SetDefault("injected-chain-ids", "1,3,4,5,42")
	v.SetDefault("walletconnect-bridge", "https://bridge.walletconnect.org")
	v.SetDefault("walletlink-app-name", "Linkswap")
	v.SetDefault("eth-usd-feed", "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419")
	v.SetDefault("link-usd-feed", "0x2c1d072e956AFFC0D435Cb7AC38EF18d24d9127c")
	v.SetDefault("weth", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	v.SetDefault("link", "0x514910771AF9Ca656af840dff83E8264EcF986CA")
	v.SetDefault("price-interval", time.Minute)
	v.SetDefault("price-max-age", 5*time.Minute)
	v.SetDefault("redis-ttl", 10*time.Minute)
	v.SetDefault("tx-log", "./data/transactions.jsonl")
	v.SetDefault("poll-interval", 15*time.Second)
	v.SetDefault("confirm-timeout", 10*time.Minute)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("listen", ":8080")
	v.SetDefault("log-level", "info")
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	pools, err := loadPools(v)
	if err != nil {
		return Config{}, err
	}
	injectedChains, err := parseUint64List(getStringSlice(v, "injected-chain-ids"))
	if err != nil {
		return Config{}, fmt.Errorf("injected-chain-ids: %w", err)
	}

	cfg := Config{
		RPCURL:      v.GetString("rpc"),
		ChainID:     v.GetUint64("chain-id"),
		MatchPolicy: v.GetString("match-policy"),
		Pools:       pools,
		Connectors: Connectors{
			InjectedPath:        v.GetString("injected-path"),
			InjectedChainIDs:    injectedChains,
			WalletConnectBridge: v.GetString("walletconnect-bridge"),
			WalletLinkAppName:   v.GetString("walletlink-app-name"),
			WalletLinkLogoURL:   v.GetString("walletlink-logo-url"),
		},
		Prices: Prices{
			ProviderURL: v.GetString("price-provider-url"),
			Interval:    v.GetDuration("price-interval"),
			MaxAge:      v.GetDuration("price-max-age"),
		},
		PGDSN: v.GetString("pg-dsn"),
		Redis: Redis{
			Addr:     v.GetString("redis-addr"),
			Password: v.GetString("redis-password"),
			DB:       v.GetInt("redis-db"),
			TTL:      v.GetDuration("redis-ttl"),
		},
		TxLog:          v.GetString("tx-log"),
		PollInterval:   v.GetDuration("poll-interval"),
		ConfirmTimeout: v.GetDuration("confirm-timeout"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		Listen:         v.GetString("listen"),
		LogLevel:       v.GetString("log-level"),
	}

	addresses := []struct {
		key string
		dst *common.Address
	}{
		{"factory", &cfg.Factory},
		{"eth-usd-feed", &cfg.Prices.ETHUSDFeed},
		{"link-usd-feed", &cfg.Prices.LinkUSDFeed},
		{"weth", &cfg.Prices.WETH},
		{"link", &cfg.Prices.Link},
	}
	for _, a := range addresses {
		addr, err := parseAddress(v.GetString(a.key))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", a.key, err)
		}
		*a.dst = addr
	}

	for _, raw := range getStringSlice(v, "price-pairs") {
		addr, err := parseAddress(raw)
		if err != nil {
			return Config{}, fmt.Errorf("price-pairs: %w", err)
		}
		cfg.Prices.Pairs = append(cfg.Prices.Pairs, addr)
	}

	hash := v.GetString("init-code-hash")
	if len(strings.TrimPrefix(hash, "0x")) != 64 {
		return Config{}, fmt.Errorf("init-code-hash: expected 32 bytes, got %q", hash)
	}
	cfg.InitCodeHash = common.HexToHash(hash)

	return cfg, nil
}

func parseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func parseUint64List(items []string) ([]uint64, error) {
	out := make([]uint64, 0, len(items))
	for _, item := range items {
		val, err := strconv.ParseUint(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", item, err)
		}
		out = append(out, val)
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
