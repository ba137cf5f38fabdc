package price

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"linkStake/internal/model"
)

// Clock returns the current time.
type Clock func() time.Time

// State is the last known set of prices. Nil maps and responses mean "not loaded yet".
type State struct {
	ETHPriceBase  decimal.Decimal
	LinkPriceBase decimal.Decimal
	PriceResponse json.RawMessage
	TokenPrices   map[string]decimal.Decimal
	LPTokenPrices map[string]decimal.Decimal
	Timestamp     time.Time
}

// Store holds price state. Every update replaces one slice of the state and stamps
// Timestamp; nothing else touches Timestamp.
type Store struct {
	mu    sync.RWMutex
	state State
	now   Clock
}

func NewStore(now Clock) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		state: State{Timestamp: now()},
		now:   now,
	}
}

// UpdatePriceBase replaces the ETH and LINK USD base prices.
func (s *Store) UpdatePriceBase(eth, link decimal.Decimal) {
	s.mu.Lock()
	s.state.ETHPriceBase = eth
	s.state.LinkPriceBase = link
	s.state.Timestamp = s.now()
	s.mu.Unlock()
}

// UpdatePriceResponse replaces the raw price provider payload.
func (s *Store) UpdatePriceResponse(raw json.RawMessage) {
	s.mu.Lock()
	s.state.PriceResponse = cloneRaw(raw)
	s.state.Timestamp = s.now()
	s.mu.Unlock()
}

// UpdateTokenPrices replaces the token price map.
func (s *Store) UpdateTokenPrices(prices map[string]decimal.Decimal) {
	s.mu.Lock()
	s.state.TokenPrices = cloneMap(prices)
	s.state.Timestamp = s.now()
	s.mu.Unlock()
}

// UpdateLPTokenPrices replaces the LP token price map.
func (s *Store) UpdateLPTokenPrices(prices map[string]decimal.Decimal) {
	s.mu.Lock()
	s.state.LPTokenPrices = cloneMap(prices)
	s.state.Timestamp = s.now()
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		ETHPriceBase:  s.state.ETHPriceBase,
		LinkPriceBase: s.state.LinkPriceBase,
		PriceResponse: cloneRaw(s.state.PriceResponse),
		TokenPrices:   cloneMap(s.state.TokenPrices),
		LPTokenPrices: cloneMap(s.state.LPTokenPrices),
		Timestamp:     s.state.Timestamp,
	}
}

// Stale reports whether the last mutation is older than maxAge at now.
func (s *Store) Stale(now time.Time, maxAge time.Duration) bool {
	s.mu.RLock()
	ts := s.state.Timestamp
	s.mu.RUnlock()
	return now.Sub(ts) > maxAge
}

// Model converts the state into its persisted form.
func (st State) Model() model.PriceSnapshot {
	return model.PriceSnapshot{
		ETHPriceBase:  st.ETHPriceBase.String(),
		LinkPriceBase: st.LinkPriceBase.String(),
		PriceResponse: cloneRaw(st.PriceResponse),
		TokenPrices:   toStrings(st.TokenPrices),
		LPTokenPrices: toStrings(st.LPTokenPrices),
		Timestamp:     st.Timestamp.UTC(),
	}
}

func cloneMap(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	if in == nil {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if in == nil {
		return nil
	}
	out := make(json.RawMessage, len(in))
	copy(out, in)
	return out
}

func toStrings(in map[string]decimal.Decimal) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v.String()
	}
	return out
}
