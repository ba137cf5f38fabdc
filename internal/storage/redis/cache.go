package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"linkStake/internal/model"
)

const (
	latestKey   = "prices:latest"
	tokenPrefix = "prices:token:"
	lpPrefix    = "prices:lp:"
)

// PriceCache keeps the latest price snapshot in Redis for readers outside the process.
type PriceCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPriceCache(addr, password string, db int, ttl time.Duration) *PriceCache {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &PriceCache{client: client, ttl: ttl}
}

func (c *PriceCache) Close() error {
	return c.client.Close()
}

// Ping checks connectivity.
func (c *PriceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// PublishPrices stores the snapshot and one key per priced token in a single pipeline.
func (c *PriceCache) PublishPrices(ctx context.Context, snapshot model.PriceSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal price snapshot: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, latestKey, data, c.ttl)
	for token, price := range snapshot.TokenPrices {
		pipe.Set(ctx, tokenPrefix+strings.ToLower(token), price, c.ttl)
	}
	for lp, price := range snapshot.LPTokenPrices {
		pipe.Set(ctx, lpPrefix+strings.ToLower(lp), price, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write prices: %w", err)
	}
	return nil
}

// LatestPrices returns the cached snapshot, or false when nothing is cached.
func (c *PriceCache) LatestPrices(ctx context.Context) (model.PriceSnapshot, bool, error) {
	data, err := c.client.Get(ctx, latestKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return model.PriceSnapshot{}, false, nil
		}
		return model.PriceSnapshot{}, false, err
	}
	var snapshot model.PriceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.PriceSnapshot{}, false, fmt.Errorf("unmarshal price snapshot: %w", err)
	}
	return snapshot, true, nil
}

// TokenPrice returns the cached USD price of a token or LP token.
func (c *PriceCache) TokenPrice(ctx context.Context, address string, lp bool) (string, bool, error) {
	key := tokenPrefix + strings.ToLower(address)
	if lp {
		key = lpPrefix + strings.ToLower(address)
	}
	price, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return price, true, nil
}
