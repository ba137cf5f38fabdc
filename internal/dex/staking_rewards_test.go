package dex

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var rewardsAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")

func TestStakingRewardsBalanceOf(t *testing.T) {
	parsed, err := StakingRewardsABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	backend := newFakeBackend()
	backend.respond(t, rewardsAddr, parsed, "balanceOf", big.NewInt(1500))

	rewards, err := NewStakingRewards(rewardsAddr, backend, big.NewInt(1))
	if err != nil {
		t.Fatalf("binding: %v", err)
	}

	bal, err := rewards.BalanceOf(context.Background(), common.HexToAddress("0x2222222222222222222222222222222222222222"))
	if err != nil {
		t.Fatalf("balanceOf: %v", err)
	}
	if bal.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("balance mismatch: %s", bal)
	}
}

func TestStakingRewardsUnstakeAndClaimRewards(t *testing.T) {
	parsed, err := StakingRewardsABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	backend := newFakeBackend()
	signer := newKeySigner(t)

	rewards, err := NewStakingRewards(rewardsAddr, backend, big.NewInt(1))
	if err != nil {
		t.Fatalf("binding: %v", err)
	}

	amount := big.NewInt(42)
	gas, err := rewards.EstimateUnstakeAndClaimRewards(context.Background(), signer.Address(), amount)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if gas != backend.gas {
		t.Fatalf("gas mismatch: %d", gas)
	}
	if backend.estimates[0].From != signer.Address() {
		t.Fatalf("estimate sender mismatch")
	}

	tx, err := rewards.UnstakeAndClaimRewards(context.Background(), signer, amount, 110000)
	if err != nil {
		t.Fatalf("unstake: %v", err)
	}
	if len(backend.sent) != 1 || backend.sent[0].Hash() != tx.Hash() {
		t.Fatalf("transaction not broadcast")
	}
	if tx.Gas() != 110000 || tx.Nonce() != 7 || *tx.To() != rewardsAddr {
		t.Fatalf("tx fields mismatch: gas=%d nonce=%d to=%s", tx.Gas(), tx.Nonce(), tx.To().Hex())
	}

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), tx)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if sender != signer.Address() {
		t.Fatalf("sender mismatch: %s", sender.Hex())
	}

	args, err := parsed.Methods["unstakeAndClaimRewards"].Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		t.Fatalf("unpack input: %v", err)
	}
	if args[0].(*big.Int).Cmp(amount) != 0 {
		t.Fatalf("amount mismatch: %v", args[0])
	}
}

func TestNewStakingRewardsRequiresChainID(t *testing.T) {
	if _, err := NewStakingRewards(rewardsAddr, newFakeBackend(), nil); err == nil {
		t.Fatalf("expected error for missing chain id")
	}
	if _, err := NewStakingRewards(rewardsAddr, nil, big.NewInt(1)); err == nil {
		t.Fatalf("expected error for nil backend")
	}
}
