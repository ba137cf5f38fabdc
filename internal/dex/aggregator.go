package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FeedAnswer is the latest round of a Chainlink price feed.
type FeedAnswer struct {
	Answer    *big.Int
	Decimals  uint8
	UpdatedAt uint64
}

// FetchFeedAnswer reads latestRoundData and decimals from an AggregatorV3 feed.
func FetchFeedAnswer(ctx context.Context, caller Caller, feed common.Address) (FeedAnswer, error) {
	if caller == nil {
		return FeedAnswer{}, fmt.Errorf("chain client is nil")
	}
	feedABI, err := AggregatorABI()
	if err != nil {
		return FeedAnswer{}, fmt.Errorf("parse aggregator abi: %w", err)
	}

	values, err := callMethod(ctx, caller, feed, feedABI, "decimals", nil)
	if err != nil {
		return FeedAnswer{}, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return FeedAnswer{}, fmt.Errorf("decimals: %w", err)
	}

	values, err = callMethod(ctx, caller, feed, feedABI, "latestRoundData", nil)
	if err != nil {
		return FeedAnswer{}, err
	}
	if len(values) != 5 {
		return FeedAnswer{}, fmt.Errorf("latestRoundData returned %d values", len(values))
	}
	answer, err := asBigInt(values[1])
	if err != nil {
		return FeedAnswer{}, fmt.Errorf("answer: %w", err)
	}
	if answer.Sign() <= 0 {
		return FeedAnswer{}, fmt.Errorf("feed %s returned non-positive answer %s", feed.Hex(), answer)
	}
	updatedAt, err := asBigInt(values[3])
	if err != nil {
		return FeedAnswer{}, fmt.Errorf("updated at: %w", err)
	}

	return FeedAnswer{Answer: answer, Decimals: decimals, UpdatedAt: updatedAt.Uint64()}, nil
}
