package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"linkStake/internal/model"
)

// JsonlStorage appends transaction updates and price snapshots to a JSONL file.
// Each transaction state change is written as a full record; the last line for a
// hash wins when the file is replayed.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
	last map[string]model.TxRecord
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path, last: make(map[string]model.TxRecord)}
}

type jsonlEntry struct {
	Kind        string               `json:"kind"`
	Transaction *model.TxRecord      `json:"transaction,omitempty"`
	Prices      *model.PriceSnapshot `json:"prices,omitempty"`
}

func (s *JsonlStorage) PutTransaction(_ context.Context, rec model.TxRecord) error {
	if rec.Hash == "" {
		return fmt.Errorf("transaction hash required")
	}
	if rec.Status == "" {
		rec.Status = model.TxPending
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.append(jsonlEntry{Kind: "transaction", Transaction: &rec}); err != nil {
		return err
	}
	s.last[txKey(rec.ChainID, rec.Hash)] = rec
	return nil
}

func (s *JsonlStorage) FinalizeTransaction(_ context.Context, chainID uint64, hash string, status model.TxStatus, blockNumber uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := txKey(chainID, hash)
	rec, ok := s.last[key]
	if !ok {
		rec = model.TxRecord{ChainID: chainID, Hash: hash}
	}
	rec.Status = status
	rec.BlockNumber = blockNumber
	rec.ConfirmedAt = formatTime(at)
	if err := s.append(jsonlEntry{Kind: "transaction", Transaction: &rec}); err != nil {
		return err
	}
	s.last[key] = rec
	return nil
}

func (s *JsonlStorage) PublishPrices(_ context.Context, snapshot model.PriceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(jsonlEntry{Kind: "prices", Prices: &snapshot})
}

// ReadTransactions replays the file and returns the latest record per transaction.
func ReadTransactions(path string) ([]model.TxRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	var order []string
	latest := make(map[string]model.TxRecord)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for scanner.Scan() {
		var entry jsonlEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("decode line: %w", err)
		}
		if entry.Transaction == nil {
			continue
		}
		key := txKey(entry.Transaction.ChainID, entry.Transaction.Hash)
		if _, seen := latest[key]; !seen {
			order = append(order, key)
		}
		latest[key] = *entry.Transaction
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan output file: %w", err)
	}

	out := make([]model.TxRecord, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out, nil
}

// append must be called with s.mu held.
func (s *JsonlStorage) append(entry jsonlEntry) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal %s entry: %w", entry.Kind, err)
	}
	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write %s entry: %w", entry.Kind, err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
