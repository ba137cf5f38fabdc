package model

import (
	"encoding/json"
	"time"
)

// PriceSnapshot is a point-in-time copy of the price store.
// Token and LP token prices are keyed by lowercase hex address and kept as decimal strings.
type PriceSnapshot struct {
	ETHPriceBase  string            `json:"eth_price_base"`
	LinkPriceBase string            `json:"link_price_base"`
	PriceResponse json.RawMessage   `json:"price_response,omitempty"`
	TokenPrices   map[string]string `json:"token_prices,omitempty"`
	LPTokenPrices map[string]string `json:"lp_token_prices,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}
