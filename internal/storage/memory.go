package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"linkStake/internal/model"
)

// MemoryTxStore keeps tracked transactions in process memory.
type MemoryTxStore struct {
	mu      sync.RWMutex
	records map[string]model.TxRecord
}

func NewMemoryTxStore() *MemoryTxStore {
	return &MemoryTxStore{records: make(map[string]model.TxRecord)}
}

func (s *MemoryTxStore) PutTransaction(_ context.Context, rec model.TxRecord) error {
	if rec.Hash == "" {
		return fmt.Errorf("transaction hash required")
	}
	if rec.Status == "" {
		rec.Status = model.TxPending
	}
	s.mu.Lock()
	s.records[txKey(rec.ChainID, rec.Hash)] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryTxStore) FinalizeTransaction(_ context.Context, chainID uint64, hash string, status model.TxStatus, blockNumber uint64, at time.Time) error {
	key := txKey(chainID, hash)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return fmt.Errorf("transaction %s not tracked", hash)
	}
	rec.Status = status
	rec.BlockNumber = blockNumber
	rec.ConfirmedAt = formatTime(at)
	s.records[key] = rec
	return nil
}

// Get returns a tracked transaction.
func (s *MemoryTxStore) Get(chainID uint64, hash string) (model.TxRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[txKey(chainID, hash)]
	return rec, ok
}

// List returns all tracked transactions ordered by submission time.
func (s *MemoryTxStore) List() []model.TxRecord {
	s.mu.RLock()
	out := make([]model.TxRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt == out[j].AddedAt {
			return out[i].Hash < out[j].Hash
		}
		return out[i].AddedAt < out[j].AddedAt
	})
	return out
}

func txKey(chainID uint64, hash string) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(hash))
}
