package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"linkStake/internal/chain"
	"linkStake/internal/dex"
	"linkStake/internal/model"
)

const lpDecimals = 18

// Sink receives every refreshed snapshot.
type Sink interface {
	PublishPrices(ctx context.Context, snapshot model.PriceSnapshot) error
}

// Sources names where each price comes from.
type Sources struct {
	ChainID      uint64
	ETHUSDFeed   common.Address
	LinkUSDFeed  common.Address
	WETH         common.Address
	Link         common.Address
	Pairs        []common.Address
	ProviderURL  string
	MaxRetries   int
	RetryBackoff time.Duration
}

// Refresher reads prices from chain and the provider and writes them into a Store.
type Refresher struct {
	sources Sources
	caller  dex.Caller
	store   *Store
	meta    *dex.TokenMetaCache
	http    *http.Client
	sinks   []Sink
	metrics *Metrics
	logger  *zap.Logger
}

func NewRefresher(sources Sources, caller dex.Caller, store *Store, logger *zap.Logger, sinks ...Sink) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sources.MaxRetries <= 0 {
		sources.MaxRetries = 3
	}
	if sources.RetryBackoff <= 0 {
		sources.RetryBackoff = 500 * time.Millisecond
	}
	return &Refresher{
		sources: sources,
		caller:  caller,
		store:   store,
		meta:    dex.NewTokenMetaCache(),
		http:    &http.Client{Timeout: 15 * time.Second},
		sinks:   sinks,
		logger:  logger,
	}
}

// WithHTTPClient replaces the client used for the provider request.
func (r *Refresher) WithHTTPClient(client *http.Client) *Refresher {
	if client != nil {
		r.http = client
	}
	return r
}

// WithMetrics records refresh outcomes.
func (r *Refresher) WithMetrics(m *Metrics) *Refresher {
	r.metrics = m
	return r
}

// Refresh runs one full update cycle and publishes the result.
func (r *Refresher) Refresh(ctx context.Context) (State, error) {
	state, err := r.refresh(ctx)
	r.metrics.observe(err, time.Now())
	return state, err
}

func (r *Refresher) refresh(ctx context.Context) (State, error) {
	if r.caller == nil {
		return State{}, errors.New("chain client is nil")
	}

	var eth, link decimal.Decimal
	err := chain.WithRetry(ctx, r.sources.MaxRetries, r.sources.RetryBackoff, func(ctx context.Context) error {
		var err error
		eth, err = r.feedPrice(ctx, r.sources.ETHUSDFeed)
		if err != nil {
			return fmt.Errorf("eth feed: %w", err)
		}
		link, err = r.feedPrice(ctx, r.sources.LinkUSDFeed)
		if err != nil {
			return fmt.Errorf("link feed: %w", err)
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}
	r.store.UpdatePriceBase(eth, link)

	if r.sources.ProviderURL != "" {
		raw, err := r.fetchProvider(ctx)
		if err != nil {
			r.logger.Warn("price provider fetch failed", zap.String("url", r.sources.ProviderURL), zap.Error(err))
		} else {
			r.store.UpdatePriceResponse(raw)
		}
	}

	tokens, lps, err := r.pairPrices(ctx, eth, link)
	if err != nil {
		return State{}, err
	}
	r.store.UpdateTokenPrices(tokens)
	r.store.UpdateLPTokenPrices(lps)

	state := r.store.Snapshot()
	snapshot := state.Model()
	for _, sink := range r.sinks {
		if err := sink.PublishPrices(ctx, snapshot); err != nil {
			r.logger.Warn("publish prices failed", zap.Error(err))
		}
	}
	return state, nil
}

// Run refreshes immediately and then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid refresh interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if state, err := r.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("price refresh failed", zap.Error(err))
		} else {
			r.logger.Info("prices refreshed",
				zap.String("eth", state.ETHPriceBase.String()),
				zap.String("link", state.LinkPriceBase.String()),
				zap.Int("tokens", len(state.TokenPrices)),
				zap.Int("lp_tokens", len(state.LPTokenPrices)),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Refresher) feedPrice(ctx context.Context, feed common.Address) (decimal.Decimal, error) {
	answer, err := dex.FetchFeedAnswer(ctx, r.caller, feed)
	if err != nil {
		return decimal.Zero, err
	}
	return Amount(answer.Answer, answer.Decimals), nil
}

func (r *Refresher) fetchProvider(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.sources.ProviderURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(body) {
		return nil, errors.New("response is not valid json")
	}
	return json.RawMessage(body), nil
}

// pairPrices prices every token paired with WETH or LINK, then every pair whose
// two sides are both priced.
func (r *Refresher) pairPrices(ctx context.Context, eth, link decimal.Decimal) (map[string]decimal.Decimal, map[string]decimal.Decimal, error) {
	tokens := map[string]decimal.Decimal{}
	if r.sources.WETH != (common.Address{}) {
		tokens[priceKey(r.sources.WETH)] = eth
	}
	if r.sources.Link != (common.Address{}) {
		tokens[priceKey(r.sources.Link)] = link
	}

	states := make([]dex.PairState, 0, len(r.sources.Pairs))
	for _, pair := range r.sources.Pairs {
		var state dex.PairState
		err := chain.WithRetry(ctx, r.sources.MaxRetries, r.sources.RetryBackoff, func(ctx context.Context) error {
			var err error
			state, err = dex.FetchPairState(ctx, r.caller, pair)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			r.logger.Warn("pair state unavailable", zap.String("pair", pair.Hex()), zap.Error(err))
			continue
		}
		states = append(states, state)
	}

	for _, base := range []common.Address{r.sources.WETH, r.sources.Link} {
		basePrice, ok := tokens[priceKey(base)]
		if !ok {
			continue
		}
		baseMeta, err := r.tokenMeta(ctx, base)
		if err != nil {
			r.logger.Warn("base token metadata unavailable", zap.String("token", base.Hex()), zap.Error(err))
			continue
		}
		for _, state := range states {
			other, ok := state.Other(base)
			if !ok {
				continue
			}
			if _, priced := tokens[priceKey(other)]; priced {
				continue
			}
			otherMeta, err := r.tokenMeta(ctx, other)
			if err != nil {
				r.logger.Warn("token metadata unavailable", zap.String("token", other.Hex()), zap.Error(err))
				continue
			}
			reserveBase, _ := state.ReserveOf(base)
			reserveOther, _ := state.ReserveOf(other)
			if p, ok := TokenPriceFromReserves(reserveBase, baseMeta.Decimals, basePrice, reserveOther, otherMeta.Decimals); ok {
				tokens[priceKey(other)] = p
			}
		}
	}

	lps := map[string]decimal.Decimal{}
	for _, state := range states {
		p0, ok0 := tokens[priceKey(state.Token0)]
		p1, ok1 := tokens[priceKey(state.Token1)]
		if !ok0 || !ok1 {
			continue
		}
		m0, err := r.tokenMeta(ctx, state.Token0)
		if err != nil {
			continue
		}
		m1, err := r.tokenMeta(ctx, state.Token1)
		if err != nil {
			continue
		}
		if p, ok := LPTokenPrice(state.Reserve0, m0.Decimals, p0, state.Reserve1, m1.Decimals, p1, state.TotalSupply, lpDecimals); ok {
			lps[priceKey(state.Address)] = p
		}
	}
	return tokens, lps, nil
}

func (r *Refresher) tokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	return r.meta.TokenMeta(ctx, r.caller, r.sources.ChainID, token, r.logger)
}

// priceKey is the lowercase hex form used as the price map key.
func priceKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
