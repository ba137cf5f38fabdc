package model

// LiquidityToken is the derived identity of a V2 pair share token.
type LiquidityToken struct {
	ChainID  uint64    `json:"chain_id"`
	Address  string    `json:"address"`
	Symbol   string    `json:"symbol"`
	Name     string    `json:"name"`
	Decimals uint8     `json:"decimals"`
	Token0   TokenMeta `json:"token0"`
	Token1   TokenMeta `json:"token1"`
}

// PairLabel renders "A/B" using the underlying token symbols.
func (t LiquidityToken) PairLabel() string {
	return symbolOrAddress(t.Token0) + "/" + symbolOrAddress(t.Token1)
}

func symbolOrAddress(meta TokenMeta) string {
	if meta.Symbol != "" {
		return meta.Symbol
	}
	return meta.Address
}
