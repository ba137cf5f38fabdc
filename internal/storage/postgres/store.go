package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkStake/internal/model"
)

// Store provides Postgres persistence for tracked transactions and price snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, stmt := range schema {
		batch.Queue(stmt)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range schema {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// PutTransaction inserts a submitted transaction, leaving an existing row untouched.
func (s *Store) PutTransaction(ctx context.Context, rec model.TxRecord) error {
	if rec.Hash == "" {
		return fmt.Errorf("transaction hash required")
	}
	status := rec.Status
	if status == "" {
		status = model.TxPending
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO staking_transactions (
			chain_id, tx_hash, from_address, to_address, nonce, summary, status, added_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (chain_id, tx_hash) DO NOTHING
	`,
		int64(rec.ChainID),
		strings.ToLower(rec.Hash),
		rec.From,
		rec.To,
		int64(rec.Nonce),
		rec.Summary,
		string(status),
		rec.AddedAt,
	)
	return err
}

// FinalizeTransaction records the receipt outcome of a tracked transaction.
func (s *Store) FinalizeTransaction(ctx context.Context, chainID uint64, hash string, status model.TxStatus, blockNumber uint64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE staking_transactions
		SET status = $3, block_number = $4, confirmed_at = $5, updated_at = now()
		WHERE chain_id = $1 AND tx_hash = $2
	`,
		int64(chainID),
		strings.ToLower(hash),
		string(status),
		int64(blockNumber),
		at.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s not tracked", hash)
	}
	return nil
}

// ListTransactions returns tracked transactions for an account, newest first.
func (s *Store) ListTransactions(ctx context.Context, chainID uint64, from string, limit int) ([]model.TxRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, tx_hash, from_address, to_address, nonce, summary, status, added_at,
			COALESCE(block_number, 0), confirmed_at
		FROM staking_transactions
		WHERE chain_id = $1 AND lower(from_address) = lower($2)
		ORDER BY added_at DESC
		LIMIT $3
	`, int64(chainID), from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TxRecord
	for rows.Next() {
		var (
			rec         model.TxRecord
			chain       int64
			nonce       int64
			status      string
			addedAt     time.Time
			block       int64
			confirmedAt *time.Time
		)
		if err := rows.Scan(&chain, &rec.Hash, &rec.From, &rec.To, &nonce, &rec.Summary, &status, &addedAt, &block, &confirmedAt); err != nil {
			return nil, err
		}
		rec.ChainID = uint64(chain)
		rec.Nonce = uint64(nonce)
		rec.Status = model.TxStatus(status)
		rec.AddedAt = addedAt.UTC().Format(time.RFC3339)
		rec.BlockNumber = uint64(block)
		if confirmedAt != nil {
			rec.ConfirmedAt = confirmedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PublishPrices stores a price snapshot keyed by its timestamp.
func (s *Store) PublishPrices(ctx context.Context, snapshot model.PriceSnapshot) error {
	tokenPrices, err := json.Marshal(nonNil(snapshot.TokenPrices))
	if err != nil {
		return fmt.Errorf("marshal token prices: %w", err)
	}
	lpPrices, err := json.Marshal(nonNil(snapshot.LPTokenPrices))
	if err != nil {
		return fmt.Errorf("marshal lp token prices: %w", err)
	}
	var response []byte
	if len(snapshot.PriceResponse) > 0 {
		response = snapshot.PriceResponse
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO price_snapshots (
			snapshot_ts, eth_price_base, link_price_base, price_response, token_prices, lp_token_prices, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (snapshot_ts)
		DO UPDATE SET
			eth_price_base = EXCLUDED.eth_price_base,
			link_price_base = EXCLUDED.link_price_base,
			price_response = EXCLUDED.price_response,
			token_prices = EXCLUDED.token_prices,
			lp_token_prices = EXCLUDED.lp_token_prices
	`,
		snapshot.Timestamp.UTC(),
		snapshot.ETHPriceBase,
		snapshot.LinkPriceBase,
		response,
		tokenPrices,
		lpPrices,
	)
	return err
}

// LatestPrices returns the most recent stored snapshot.
func (s *Store) LatestPrices(ctx context.Context) (model.PriceSnapshot, bool, error) {
	var (
		snapshot    model.PriceSnapshot
		response    []byte
		tokenPrices []byte
		lpPrices    []byte
	)
	row := s.pool.QueryRow(ctx, `
		SELECT snapshot_ts, eth_price_base::text, link_price_base::text, price_response, token_prices, lp_token_prices
		FROM price_snapshots
		ORDER BY snapshot_ts DESC
		LIMIT 1
	`)
	if err := row.Scan(&snapshot.Timestamp, &snapshot.ETHPriceBase, &snapshot.LinkPriceBase, &response, &tokenPrices, &lpPrices); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PriceSnapshot{}, false, nil
		}
		return model.PriceSnapshot{}, false, err
	}
	if len(response) > 0 {
		snapshot.PriceResponse = json.RawMessage(response)
	}
	if err := json.Unmarshal(tokenPrices, &snapshot.TokenPrices); err != nil {
		return model.PriceSnapshot{}, false, fmt.Errorf("decode token prices: %w", err)
	}
	if err := json.Unmarshal(lpPrices, &snapshot.LPTokenPrices); err != nil {
		return model.PriceSnapshot{}, false, fmt.Errorf("decode lp token prices: %w", err)
	}
	snapshot.Timestamp = snapshot.Timestamp.UTC()
	return snapshot, true, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
