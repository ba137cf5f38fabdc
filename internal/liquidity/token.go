package liquidity

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"linkStake/internal/model"
)

const (
	lpSymbol   = "LSLP"
	lpName     = "LinkSwap LP Token"
	lpDecimals = 18
)

// Uniswap V2 mainnet deployment, used when no factory is configured.
var (
	DefaultFactory      = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	DefaultInitCodeHash = common.HexToHash("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")
)

var wrappedNative = map[uint64]model.TokenMeta{
	1:  {ChainID: 1, Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18, Symbol: "WETH", Name: "Wrapped Ether"},
	3:  {ChainID: 3, Address: "0xc778417E063141139Fce010982780140Aa0cD5Ab", Decimals: 18, Symbol: "WETH", Name: "Wrapped Ether"},
	4:  {ChainID: 4, Address: "0xc778417E063141139Fce010982780140Aa0cD5Ab", Decimals: 18, Symbol: "WETH", Name: "Wrapped Ether"},
	5:  {ChainID: 5, Address: "0xB4FBF271143F4FBf7B91A5ded31805e42b2208d6", Decimals: 18, Symbol: "WETH", Name: "Wrapped Ether"},
	42: {ChainID: 42, Address: "0xd0A1E359811322d97991E03f863a0C30C2cF029C", Decimals: 18, Symbol: "WETH", Name: "Wrapped Ether"},
}

// WrappedNative returns the wrapped native token for chainID, falling back to mainnet WETH.
func WrappedNative(chainID uint64) model.TokenMeta {
	if meta, ok := wrappedNative[chainID]; ok {
		return meta
	}
	return wrappedNative[1]
}

// IsNativeSymbol reports whether id names the chain's native asset rather than a token address.
func IsNativeSymbol(id string) bool {
	return strings.EqualFold(strings.TrimSpace(id), "ETH")
}

// SortTokens orders two token addresses the way V2 pairs store them.
func SortTokens(a, b common.Address) (common.Address, common.Address, error) {
	switch bytes.Compare(a.Bytes(), b.Bytes()) {
	case 0:
		return common.Address{}, common.Address{}, fmt.Errorf("identical token addresses: %s", a.Hex())
	case -1:
		return a, b, nil
	default:
		return b, a, nil
	}
}

// PairAddress computes the CREATE2 address of the V2 pair for tokens a and b.
func PairAddress(factory common.Address, initCodeHash common.Hash, a, b common.Address) (common.Address, error) {
	token0, token1, err := SortTokens(a, b)
	if err != nil {
		return common.Address{}, err
	}
	salt := crypto.Keccak256Hash(token0.Bytes(), token1.Bytes())
	return crypto.CreateAddress2(factory, salt, initCodeHash.Bytes()), nil
}

// Deriver builds liquidity token identities for a V2 factory deployment.
type Deriver struct {
	Factory      common.Address
	InitCodeHash common.Hash
}

// NewDeriver returns a Deriver, defaulting zero values to the Uniswap V2 mainnet factory.
func NewDeriver(factory common.Address, initCodeHash common.Hash) Deriver {
	if factory == (common.Address{}) {
		factory = DefaultFactory
	}
	if initCodeHash == (common.Hash{}) {
		initCodeHash = DefaultInitCodeHash
	}
	return Deriver{Factory: factory, InitCodeHash: initCodeHash}
}

// LiquidityToken derives the LP token for a pair on chainID. A nil side is replaced
// by the chain's wrapped native token.
func (d Deriver) LiquidityToken(chainID uint64, tokenA, tokenB *model.TokenMeta) (model.LiquidityToken, error) {
	a := WrappedNative(chainID)
	if tokenA != nil {
		a = *tokenA
	}
	b := WrappedNative(chainID)
	if tokenB != nil {
		b = *tokenB
	}

	if !common.IsHexAddress(a.Address) {
		return model.LiquidityToken{}, fmt.Errorf("invalid token address: %s", a.Address)
	}
	if !common.IsHexAddress(b.Address) {
		return model.LiquidityToken{}, fmt.Errorf("invalid token address: %s", b.Address)
	}
	addrA := common.HexToAddress(a.Address)
	addrB := common.HexToAddress(b.Address)

	pair, err := PairAddress(d.Factory, d.InitCodeHash, addrA, addrB)
	if err != nil {
		return model.LiquidityToken{}, err
	}

	token0, token1 := a, b
	if first, _, _ := SortTokens(addrA, addrB); first != addrA {
		token0, token1 = b, a
	}

	return model.LiquidityToken{
		ChainID:  chainID,
		Address:  pair.Hex(),
		Symbol:   lpSymbol,
		Name:     lpName,
		Decimals: lpDecimals,
		Token0:   token0,
		Token1:   token1,
	}, nil
}
