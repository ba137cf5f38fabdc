package storage

import (
	"context"
	"time"

	"linkStake/internal/model"
)

// TxStore tracks submitted transactions from submission to their final receipt.
type TxStore interface {
	PutTransaction(ctx context.Context, rec model.TxRecord) error
	FinalizeTransaction(ctx context.Context, chainID uint64, hash string, status model.TxStatus, blockNumber uint64, at time.Time) error
}

// PriceSink receives price store snapshots.
type PriceSink interface {
	PublishPrices(ctx context.Context, snapshot model.PriceSnapshot) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
