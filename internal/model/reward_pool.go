package model

// RewardPool links a liquidity pair token to the rewards contract that stakes it.
type RewardPool struct {
	Address        string `json:"address" mapstructure:"address"`
	RewardsAddress string `json:"rewards_address" mapstructure:"rewards_address"`
}
