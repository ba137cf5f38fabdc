package model

// TxStatus is the lifecycle stage of a tracked transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// TxRecord is a submitted transaction registered with a human-readable summary.
type TxRecord struct {
	ChainID     uint64   `json:"chain_id"`
	Hash        string   `json:"hash"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Nonce       uint64   `json:"nonce"`
	Summary     string   `json:"summary"`
	Status      TxStatus `json:"status"`
	AddedAt     string   `json:"added_at"`
	BlockNumber uint64   `json:"block_number,omitempty"`
	ConfirmedAt string   `json:"confirmed_at,omitempty"`
}
