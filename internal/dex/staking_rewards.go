package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Transactor is the chain backend needed to build and broadcast transactions.
type Transactor interface {
	Caller
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// TxSigner signs transactions for a single account.
type TxSigner interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// StakingRewards binds a rewards contract that stakes liquidity tokens.
type StakingRewards struct {
	address common.Address
	backend Transactor
	chainID *big.Int
	abi     abi.ABI
}

// NewStakingRewards builds a binding for the rewards contract at address.
func NewStakingRewards(address common.Address, backend Transactor, chainID *big.Int) (*StakingRewards, error) {
	if backend == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("chain id is required")
	}
	parsed, err := StakingRewardsABI()
	if err != nil {
		return nil, fmt.Errorf("parse staking rewards abi: %w", err)
	}
	return &StakingRewards{
		address: address,
		backend: backend,
		chainID: new(big.Int).Set(chainID),
		abi:     parsed,
	}, nil
}

// Address returns the rewards contract address.
func (s *StakingRewards) Address() common.Address {
	return s.address
}

// BalanceOf returns the amount of liquidity tokens account has staked.
func (s *StakingRewards) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	values, err := callMethod(ctx, s.backend, s.address, s.abi, "balanceOf", nil, account)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Earned returns the rewards accrued by account and not yet claimed.
func (s *StakingRewards) Earned(ctx context.Context, account common.Address) (*big.Int, error) {
	values, err := callMethod(ctx, s.backend, s.address, s.abi, "earned", nil, account)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// StakingToken returns the liquidity token the contract accepts.
func (s *StakingRewards) StakingToken(ctx context.Context) (common.Address, error) {
	values, err := callMethod(ctx, s.backend, s.address, s.abi, "stakingToken", nil)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// EstimateUnstakeAndClaimRewards estimates gas for unstaking amount from account.
func (s *StakingRewards) EstimateUnstakeAndClaimRewards(ctx context.Context, from common.Address, amount *big.Int) (uint64, error) {
	data, err := s.abi.Pack("unstakeAndClaimRewards", amount)
	if err != nil {
		return 0, fmt.Errorf("pack unstakeAndClaimRewards: %w", err)
	}
	to := s.address
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return 0, fmt.Errorf("estimate unstakeAndClaimRewards: %w", err)
	}
	return gas, nil
}

// UnstakeAndClaimRewards signs and broadcasts an unstake of amount with the given gas limit.
func (s *StakingRewards) UnstakeAndClaimRewards(ctx context.Context, signer TxSigner, amount *big.Int, gasLimit uint64) (*types.Transaction, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer is nil")
	}
	data, err := s.abi.Pack("unstakeAndClaimRewards", amount)
	if err != nil {
		return nil, fmt.Errorf("pack unstakeAndClaimRewards: %w", err)
	}

	nonce, err := s.backend.PendingNonceAt(ctx, signer.Address())
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	to := s.address
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    new(big.Int),
		Data:     data,
	})

	signed, err := signer.SignTx(ctx, tx, s.chainID)
	if err != nil {
		return nil, err
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send unstakeAndClaimRewards: %w", err)
	}
	return signed, nil
}
