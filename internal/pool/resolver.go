package pool

import (
	"strings"
	"sync"

	"linkStake/internal/model"
)

// MatchPolicy selects how pair addresses are compared against the pool list.
type MatchPolicy int

const (
	// MatchCaseInsensitive compares addresses ignoring hex case (checksummed vs lowercase).
	MatchCaseInsensitive MatchPolicy = iota
	// MatchExact compares raw strings.
	MatchExact
)

// ParseMatchPolicy maps "exact" to MatchExact and anything else to MatchCaseInsensitive.
func ParseMatchPolicy(value string) MatchPolicy {
	if strings.EqualFold(strings.TrimSpace(value), "exact") {
		return MatchExact
	}
	return MatchCaseInsensitive
}

func (p MatchPolicy) String() string {
	if p == MatchExact {
		return "exact"
	}
	return "case-insensitive"
}

// Resolution is the outcome of a pool lookup. Found is false when no pool matched.
type Resolution struct {
	Pool  model.RewardPool
	Found bool
}

// RewardsAddress returns the rewards contract address when the pair resolved.
func (r Resolution) RewardsAddress() (string, bool) {
	if !r.Found {
		return "", false
	}
	return r.Pool.RewardsAddress, true
}

// Resolve returns the first pool in pools whose address matches pair.
func Resolve(pair string, pools []model.RewardPool, policy MatchPolicy) Resolution {
	for _, p := range pools {
		if matches(p.Address, pair, policy) {
			return Resolution{Pool: p, Found: true}
		}
	}
	return Resolution{}
}

func matches(a, b string, policy MatchPolicy) bool {
	if policy == MatchExact {
		return a == b
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Resolver resolves pairs against a fixed pool list and caches the outcome per pair.
type Resolver struct {
	pools  []model.RewardPool
	policy MatchPolicy

	mu    sync.RWMutex
	cache map[string]Resolution
}

func NewResolver(pools []model.RewardPool, policy MatchPolicy) *Resolver {
	copied := make([]model.RewardPool, len(pools))
	copy(copied, pools)
	return &Resolver{
		pools:  copied,
		policy: policy,
		cache:  make(map[string]Resolution),
	}
}

// Resolve looks up pair, scanning the pool list only on the first request.
func (r *Resolver) Resolve(pair string) Resolution {
	key := r.key(pair)

	r.mu.RLock()
	res, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return res
	}

	res = Resolve(pair, r.pools, r.policy)
	r.mu.Lock()
	r.cache[key] = res
	r.mu.Unlock()
	return res
}

// Pools returns a copy of the configured pool list.
func (r *Resolver) Pools() []model.RewardPool {
	out := make([]model.RewardPool, len(r.pools))
	copy(out, r.pools)
	return out
}

// Policy returns the comparison policy in use.
func (r *Resolver) Policy() MatchPolicy {
	return r.policy
}

func (r *Resolver) key(pair string) string {
	if r.policy == MatchExact {
		return pair
	}
	return strings.ToLower(strings.TrimSpace(pair))
}
