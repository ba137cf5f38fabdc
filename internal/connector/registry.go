package connector

import (
	"context"
	"fmt"
	"time"

	"linkStake/internal/chain"
)

// Settings configures the connectors built at startup.
type Settings struct {
	ChainID             uint64
	NetworkURL          string
	InjectedPath        string
	InjectedChainIDs    []uint64
	WalletConnectBridge string
	WalletLinkAppName   string
	WalletLinkLogoURL   string
}

// DefaultInjectedChainIDs are the chains an injected provider is accepted on.
var DefaultInjectedChainIDs = []uint64{1, 3, 4, 5, 42}

const (
	defaultBridge          = "https://bridge.walletconnect.org"
	defaultPollingInterval = 15 * time.Second
)

// DialFunc opens a chain client for an endpoint.
type DialFunc func(ctx context.Context, endpoint string) (*chain.Client, error)

// Registry holds the process-wide connector set. Build it once and pass it to consumers.
type Registry struct {
	order      []Kind
	connectors map[Kind]Connector
	dial       DialFunc
}

// NewRegistry builds the injected, walletlink, walletconnect and network connectors.
func NewRegistry(s Settings) *Registry {
	injectedChains := s.InjectedChainIDs
	if len(injectedChains) == 0 {
		injectedChains = DefaultInjectedChainIDs
	}
	bridge := s.WalletConnectBridge
	if bridge == "" {
		bridge = defaultBridge
	}

	r := &Registry{connectors: make(map[Kind]Connector), dial: chain.NewClient}
	r.add(Injected{Path: s.InjectedPath, ChainIDs: injectedChains})
	r.add(WalletLink{URL: s.NetworkURL, AppName: s.WalletLinkAppName, AppLogoURL: s.WalletLinkLogoURL})
	r.add(WalletConnect{
		RPC:             map[uint64]string{1: s.NetworkURL},
		Bridge:          bridge,
		QRCode:          true,
		PollingInterval: defaultPollingInterval,
	})
	r.add(Network{URLs: map[uint64]string{s.ChainID: s.NetworkURL}, DefaultChainID: s.ChainID})
	return r
}

// WithDialer replaces the function used to open clients.
func (r *Registry) WithDialer(dial DialFunc) *Registry {
	r.dial = dial
	return r
}

func (r *Registry) add(c Connector) {
	if _, ok := r.connectors[c.Kind()]; !ok {
		r.order = append(r.order, c.Kind())
	}
	r.connectors[c.Kind()] = c
}

// Get returns the connector of the given kind.
func (r *Registry) Get(kind Kind) (Connector, bool) {
	c, ok := r.connectors[kind]
	return c, ok
}

// Kinds lists connectors in registration order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, len(r.order))
	copy(out, r.order)
	return out
}

// Dial opens a client through the named connector for chainID.
func (r *Registry) Dial(ctx context.Context, kind Kind, chainID uint64) (*chain.Client, error) {
	c, ok := r.connectors[kind]
	if !ok {
		return nil, fmt.Errorf("unknown connector %q", kind)
	}
	endpoint, err := c.Endpoint(chainID)
	if err != nil {
		return nil, err
	}
	client, err := r.dial(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", kind, err)
	}
	return client, nil
}

// DialAny tries connectors in registration order and returns the first that dials.
func (r *Registry) DialAny(ctx context.Context, chainID uint64) (*chain.Client, Kind, error) {
	var lastErr error
	for _, kind := range r.order {
		client, err := r.Dial(ctx, kind, chainID)
		if err == nil {
			return client, kind, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no connectors registered")
	}
	return nil, "", lastErr
}
