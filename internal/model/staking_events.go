package model

// WithdrawnEventData is the decoded Withdrawn event payload of a rewards contract.
type WithdrawnEventData struct {
	User   string `json:"user"`
	Amount string `json:"amount"`
}

// RewardPaidEventData is the decoded RewardPaid event payload of a rewards contract.
type RewardPaidEventData struct {
	User   string `json:"user"`
	Reward string `json:"reward"`
}

// UnstakeOutcome summarizes the staking events emitted by a confirmed unstake.
type UnstakeOutcome struct {
	TxHash      string                `json:"tx_hash"`
	BlockNumber uint64                `json:"block_number"`
	Withdrawn   []WithdrawnEventData  `json:"withdrawn"`
	RewardPaid  []RewardPaidEventData `json:"reward_paid"`
}
