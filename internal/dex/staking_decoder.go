package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"linkStake/internal/model"
)

// DecodeUnstakeReceipt extracts Withdrawn and RewardPaid events emitted by the
// rewards contract in a receipt. Logs from other contracts are ignored.
func DecodeUnstakeReceipt(receipt *types.Receipt, rewards common.Address) (model.UnstakeOutcome, error) {
	if receipt == nil {
		return model.UnstakeOutcome{}, fmt.Errorf("receipt is nil")
	}
	parsed, err := StakingRewardsABI()
	if err != nil {
		return model.UnstakeOutcome{}, fmt.Errorf("parse staking rewards abi: %w", err)
	}

	outcome := model.UnstakeOutcome{
		TxHash:     receipt.TxHash.Hex(),
		Withdrawn:  []model.WithdrawnEventData{},
		RewardPaid: []model.RewardPaidEventData{},
	}
	if receipt.BlockNumber != nil {
		outcome.BlockNumber = receipt.BlockNumber.Uint64()
	}

	withdrawn := parsed.Events["Withdrawn"]
	rewardPaid := parsed.Events["RewardPaid"]

	for _, log := range receipt.Logs {
		if log == nil || log.Address != rewards || len(log.Topics) == 0 {
			continue
		}
		switch log.Topics[0] {
		case withdrawn.ID:
			user, values, err := decodeUserEvent(withdrawn, log)
			if err != nil {
				return outcome, err
			}
			outcome.Withdrawn = append(outcome.Withdrawn, model.WithdrawnEventData{
				User:   user.Hex(),
				Amount: values,
			})
		case rewardPaid.ID:
			user, values, err := decodeUserEvent(rewardPaid, log)
			if err != nil {
				return outcome, err
			}
			outcome.RewardPaid = append(outcome.RewardPaid, model.RewardPaidEventData{
				User:   user.Hex(),
				Reward: values,
			})
		}
	}

	return outcome, nil
}

// decodeUserEvent decodes an event shaped (address indexed user, uint256 value).
func decodeUserEvent(event abi.Event, log *types.Log) (common.Address, string, error) {
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return common.Address{}, "", fmt.Errorf("%s: expected %d topics, got %d", event.Name, len(indexed)+1, len(log.Topics))
	}

	var topics struct {
		User common.Address
	}
	if err := abi.ParseTopics(&topics, indexed, log.Topics[1:]); err != nil {
		return common.Address{}, "", fmt.Errorf("%s: parse topics: %w", event.Name, err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return common.Address{}, "", fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if len(values) != 1 {
		return common.Address{}, "", fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	amount, err := asBigInt(values[0])
	if err != nil {
		return common.Address{}, "", err
	}
	return topics.User, amount.String(), nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
