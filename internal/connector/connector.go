package connector

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrUnsupportedChain is returned when a connector cannot serve the requested chain.
var ErrUnsupportedChain = errors.New("unsupported chain")

// Kind identifies how a connector reaches a provider.
type Kind string

const (
	KindInjected      Kind = "injected"
	KindWalletLink    Kind = "walletlink"
	KindWalletConnect Kind = "walletconnect"
	KindNetwork       Kind = "network"
)

// Connector describes how to obtain a provider endpoint for a chain.
type Connector interface {
	Kind() Kind
	SupportedChainIDs() []uint64
	Endpoint(chainID uint64) (string, error)
}

// Supports reports whether c can serve chainID.
func Supports(c Connector, chainID uint64) bool {
	for _, id := range c.SupportedChainIDs() {
		if id == chainID {
			return true
		}
	}
	return false
}

// Injected reaches a provider run by the user, typically a local node's IPC socket.
type Injected struct {
	Path     string
	ChainIDs []uint64
}

func (c Injected) Kind() Kind                  { return KindInjected }
func (c Injected) SupportedChainIDs() []uint64 { return c.ChainIDs }

func (c Injected) Endpoint(chainID uint64) (string, error) {
	if !Supports(c, chainID) {
		return "", fmt.Errorf("%s chain %d: %w", c.Kind(), chainID, ErrUnsupportedChain)
	}
	if c.Path == "" {
		return "", fmt.Errorf("%s endpoint is not configured", c.Kind())
	}
	return c.Path, nil
}

// WalletLink relays through a single mainnet URL on behalf of a named app.
type WalletLink struct {
	URL        string
	AppName    string
	AppLogoURL string
}

func (c WalletLink) Kind() Kind                  { return KindWalletLink }
func (c WalletLink) SupportedChainIDs() []uint64 { return []uint64{1} }

func (c WalletLink) Endpoint(chainID uint64) (string, error) {
	if chainID != 1 {
		return "", fmt.Errorf("%s chain %d: %w", c.Kind(), chainID, ErrUnsupportedChain)
	}
	if c.URL == "" {
		return "", fmt.Errorf("%s endpoint is not configured", c.Kind())
	}
	return c.URL, nil
}

// WalletConnect reaches a remote wallet through a bridge; reads go to the per-chain RPC map.
type WalletConnect struct {
	RPC             map[uint64]string
	Bridge          string
	QRCode          bool
	PollingInterval time.Duration
}

func (c WalletConnect) Kind() Kind { return KindWalletConnect }

func (c WalletConnect) SupportedChainIDs() []uint64 {
	return sortedKeys(c.RPC)
}

func (c WalletConnect) Endpoint(chainID uint64) (string, error) {
	url, ok := c.RPC[chainID]
	if !ok || url == "" {
		return "", fmt.Errorf("%s chain %d: %w", c.Kind(), chainID, ErrUnsupportedChain)
	}
	return url, nil
}

// Network is a read-only connector backed by configured RPC URLs.
type Network struct {
	URLs           map[uint64]string
	DefaultChainID uint64
}

func (c Network) Kind() Kind { return KindNetwork }

func (c Network) SupportedChainIDs() []uint64 {
	return sortedKeys(c.URLs)
}

// Endpoint returns the URL for chainID; 0 selects the default chain.
func (c Network) Endpoint(chainID uint64) (string, error) {
	if chainID == 0 {
		chainID = c.DefaultChainID
	}
	url, ok := c.URLs[chainID]
	if !ok || url == "" {
		return "", fmt.Errorf("%s chain %d: %w", c.Kind(), chainID, ErrUnsupportedChain)
	}
	return url, nil
}

func sortedKeys(m map[uint64]string) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id, url := range m {
		if url == "" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
