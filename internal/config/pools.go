package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"linkStake/internal/model"
)

// loadPools reads the ordered reward pool list. The config file form is a list of
// {address, rewards_address} maps; flags and env use "pair=rewards" items.
func loadPools(v *viper.Viper) ([]model.RewardPool, error) {
	if !v.IsSet("pools") {
		return nil, nil
	}

	switch v.Get("pools").(type) {
	case string, []string:
		return parsePoolPairs(getStringSlice(v, "pools"))
	}

	var pools []model.RewardPool
	if err := v.UnmarshalKey("pools", &pools); err != nil {
		return nil, fmt.Errorf("decode pools: %w", err)
	}
	for i, p := range pools {
		if strings.TrimSpace(p.Address) == "" || strings.TrimSpace(p.RewardsAddress) == "" {
			return nil, fmt.Errorf("pool %d: address and rewards_address are required", i)
		}
	}
	return pools, nil
}

func parsePoolPairs(items []string) ([]model.RewardPool, error) {
	pools := make([]model.RewardPool, 0, len(items))
	for _, item := range items {
		pair, rewards, ok := strings.Cut(item, "=")
		pair, rewards = strings.TrimSpace(pair), strings.TrimSpace(rewards)
		if !ok || pair == "" || rewards == "" {
			return nil, fmt.Errorf("pool %q: expected pair=rewards", item)
		}
		pools = append(pools, model.RewardPool{Address: pair, RewardsAddress: rewards})
	}
	return pools, nil
}
