package storage

import (
	"context"
	"errors"
	"time"

	"linkStake/internal/model"
)

// MultiTxStore forwards every call to each store and joins their errors.
type MultiTxStore []TxStore

func (m MultiTxStore) PutTransaction(ctx context.Context, rec model.TxRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.PutTransaction(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiTxStore) FinalizeTransaction(ctx context.Context, chainID uint64, hash string, status model.TxStatus, blockNumber uint64, at time.Time) error {
	var errs []error
	for _, s := range m {
		if err := s.FinalizeTransaction(ctx, chainID, hash, status, blockNumber, at); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
