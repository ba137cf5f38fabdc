package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PairState is a snapshot of a V2 pair's tokens, reserves and LP supply.
type PairState struct {
	Address     common.Address
	Token0      common.Address
	Token1      common.Address
	Reserve0    *big.Int
	Reserve1    *big.Int
	TotalSupply *big.Int
}

// FetchPairState reads token0, token1, getReserves and totalSupply from a V2 pair.
func FetchPairState(ctx context.Context, caller Caller, pair common.Address) (PairState, error) {
	if caller == nil {
		return PairState{}, fmt.Errorf("chain client is nil")
	}
	pairABI, err := V2PairABI()
	if err != nil {
		return PairState{}, fmt.Errorf("parse pair abi: %w", err)
	}

	state := PairState{Address: pair}

	values, err := callMethod(ctx, caller, pair, pairABI, "token0", nil)
	if err != nil {
		return PairState{}, err
	}
	if state.Token0, err = asAddress(values[0]); err != nil {
		return PairState{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, caller, pair, pairABI, "token1", nil)
	if err != nil {
		return PairState{}, err
	}
	if state.Token1, err = asAddress(values[0]); err != nil {
		return PairState{}, fmt.Errorf("token1: %w", err)
	}

	values, err = callMethod(ctx, caller, pair, pairABI, "getReserves", nil)
	if err != nil {
		return PairState{}, err
	}
	if len(values) < 2 {
		return PairState{}, fmt.Errorf("getReserves returned %d values", len(values))
	}
	if state.Reserve0, err = asBigInt(values[0]); err != nil {
		return PairState{}, fmt.Errorf("reserve0: %w", err)
	}
	if state.Reserve1, err = asBigInt(values[1]); err != nil {
		return PairState{}, fmt.Errorf("reserve1: %w", err)
	}

	values, err = callMethod(ctx, caller, pair, pairABI, "totalSupply", nil)
	if err != nil {
		return PairState{}, err
	}
	if state.TotalSupply, err = asBigInt(values[0]); err != nil {
		return PairState{}, fmt.Errorf("total supply: %w", err)
	}

	return state, nil
}

// ReserveOf returns the reserve held for token, or false if token is not in the pair.
func (p PairState) ReserveOf(token common.Address) (*big.Int, bool) {
	switch token {
	case p.Token0:
		return p.Reserve0, true
	case p.Token1:
		return p.Reserve1, true
	default:
		return nil, false
	}
}

// Other returns the pair token that is not token.
func (p PairState) Other(token common.Address) (common.Address, bool) {
	switch token {
	case p.Token0:
		return p.Token1, true
	case p.Token1:
		return p.Token0, true
	default:
		return common.Address{}, false
	}
}
