package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS staking_transactions (
		chain_id BIGINT NOT NULL,
		tx_hash TEXT NOT NULL,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL,
		nonce BIGINT NOT NULL,
		summary TEXT NOT NULL,
		status TEXT NOT NULL,
		added_at TIMESTAMPTZ NOT NULL,
		block_number BIGINT,
		confirmed_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (chain_id, tx_hash)
	)`,
	`CREATE INDEX IF NOT EXISTS staking_transactions_from_idx
		ON staking_transactions (chain_id, lower(from_address), added_at DESC)`,
	`CREATE TABLE IF NOT EXISTS price_snapshots (
		snapshot_ts TIMESTAMPTZ PRIMARY KEY,
		eth_price_base NUMERIC NOT NULL,
		link_price_base NUMERIC NOT NULL,
		price_response JSONB,
		token_prices JSONB NOT NULL,
		lp_token_prices JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}
