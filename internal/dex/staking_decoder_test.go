package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestDecodeUnstakeReceipt(t *testing.T) {
	parsed, err := StakingRewardsABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	user := common.HexToAddress("0x3333333333333333333333333333333333333333")

	withdrawnData, err := parsed.Events["Withdrawn"].Inputs.NonIndexed().Pack(big.NewInt(1000))
	if err != nil {
		t.Fatalf("pack withdrawn: %v", err)
	}
	rewardData, err := parsed.Events["RewardPaid"].Inputs.NonIndexed().Pack(big.NewInt(25))
	if err != nil {
		t.Fatalf("pack reward: %v", err)
	}

	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      common.HexToHash("0xabc"),
		BlockNumber: big.NewInt(12345),
		Logs: []*types.Log{
			{
				Address: common.HexToAddress("0x9999999999999999999999999999999999999999"),
				Topics:  []common.Hash{parsed.Events["Withdrawn"].ID, common.BytesToHash(user.Bytes())},
				Data:    withdrawnData,
			},
			{
				Address: rewardsAddr,
				Topics:  []common.Hash{parsed.Events["Withdrawn"].ID, common.BytesToHash(user.Bytes())},
				Data:    withdrawnData,
			},
			{
				Address: rewardsAddr,
				Topics:  []common.Hash{parsed.Events["RewardPaid"].ID, common.BytesToHash(user.Bytes())},
				Data:    rewardData,
			},
		},
	}

	outcome, err := DecodeUnstakeReceipt(receipt, rewardsAddr)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if outcome.BlockNumber != 12345 {
		t.Fatalf("block mismatch: %d", outcome.BlockNumber)
	}
	if len(outcome.Withdrawn) != 1 || outcome.Withdrawn[0].Amount != "1000" || outcome.Withdrawn[0].User != user.Hex() {
		t.Fatalf("withdrawn mismatch: %+v", outcome.Withdrawn)
	}
	if len(outcome.RewardPaid) != 1 || outcome.RewardPaid[0].Reward != "25" {
		t.Fatalf("reward mismatch: %+v", outcome.RewardPaid)
	}
}

func TestDecodeUnstakeReceiptTopicCount(t *testing.T) {
	parsed, err := StakingRewardsABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	receipt := &types.Receipt{
		Logs: []*types.Log{{
			Address: rewardsAddr,
			Topics:  []common.Hash{parsed.Events["Withdrawn"].ID},
		}},
	}
	if _, err := DecodeUnstakeReceipt(receipt, rewardsAddr); err == nil {
		t.Fatalf("expected topic count error")
	}
}
