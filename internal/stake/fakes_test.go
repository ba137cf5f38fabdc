package stake

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"linkStake/internal/dex"
	"linkStake/internal/model"
	"linkStake/internal/storage"
)

var (
	rewardsAddr = common.HexToAddress("0x9A0A9D2b5a7C3F1a2d1B6E1d3C5e0a8F7b6D4c21")
	accountAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

type fakeContract struct {
	mu          sync.Mutex
	balance     *big.Int
	balanceErr  error
	estimate    uint64
	estimateErr error
	sendErr     error
	onEstimate  func()
	gasLimits   []uint64
	amounts     []*big.Int
	estimates   int
}

func (f *fakeContract) Address() common.Address { return rewardsAddr }

func (f *fakeContract) setBalance(v *big.Int) {
	f.mu.Lock()
	f.balance = v
	f.mu.Unlock()
}

func (f *fakeContract) BalanceOf(context.Context, common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeContract) EstimateUnstakeAndClaimRewards(_ context.Context, _ common.Address, _ *big.Int) (uint64, error) {
	f.mu.Lock()
	f.estimates++
	hook := f.onEstimate
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return f.estimate, nil
}

func (f *fakeContract) UnstakeAndClaimRewards(_ context.Context, _ dex.TxSigner, amount *big.Int, gasLimit uint64) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.gasLimits = append(f.gasLimits, gasLimit)
	f.amounts = append(f.amounts, new(big.Int).Set(amount))
	to := rewardsAddr
	return types.NewTx(&types.LegacyTx{
		Nonce:    uint64(len(f.amounts)),
		GasPrice: big.NewInt(1),
		Gas:      gasLimit,
		To:       &to,
		Value:    new(big.Int),
	}), nil
}

type fakeReceipts struct {
	mu       sync.Mutex
	receipts map[common.Hash]*types.Receipt
	lookups  int
}

func newFakeReceipts() *fakeReceipts {
	return &fakeReceipts{receipts: map[common.Hash]*types.Receipt{}}
}

func (f *fakeReceipts) mine(hash common.Hash, status uint64, block int64) {
	f.mu.Lock()
	f.receipts[hash] = &types.Receipt{TxHash: hash, Status: status, BlockNumber: big.NewInt(block)}
	f.mu.Unlock()
}

func (f *fakeReceipts) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

type fakeBlocks struct {
	mu    sync.Mutex
	times map[uint64]uint64
	err   error
}

func (f *fakeBlocks) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	ts, ok := f.times[number]
	if !ok {
		return 0, ethereum.NotFound
	}
	return ts, nil
}

type stubSigner struct{}

func (stubSigner) Address() common.Address { return accountAddr }

func (stubSigner) SignTx(_ context.Context, tx *types.Transaction, _ *big.Int) (*types.Transaction, error) {
	return tx, nil
}

type rpcError struct {
	code int
	msg  string
}

func (e rpcError) Error() string  { return e.msg }
func (e rpcError) ErrorCode() int { return e.code }

var errBoom = errors.New("execution reverted: boom")

type harness struct {
	ctrl     *Controller
	contract *fakeContract
	receipts *fakeReceipts
	tracker  *storage.MemoryTxStore
	metrics  *Metrics
	logs     *observer.ObservedLogs
}

func liquidityToken() model.LiquidityToken {
	return model.LiquidityToken{
		ChainID:  1,
		Symbol:   "LSLP",
		Decimals: 18,
		Token0:   model.TokenMeta{Symbol: "LINK", Decimals: 18},
		Token1:   model.TokenMeta{Symbol: "WETH", Decimals: 18},
	}
}

func newHarness(t *testing.T, balance *big.Int, mutate func(*Options)) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	h := &harness{
		contract: &fakeContract{balance: balance, estimate: 100000},
		receipts: newFakeReceipts(),
		tracker:  storage.NewMemoryTxStore(),
		metrics:  metrics,
		logs:     logs,
	}
	opts := Options{
		ChainID:             1,
		Liquidity:           liquidityToken(),
		Signer:              stubSigner{},
		Contract:            h.contract,
		Receipts:            h.receipts,
		Tracker:             h.tracker,
		Metrics:             metrics,
		Logger:              zap.New(core),
		ReceiptPollInterval: 2 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.ctrl = NewController(opts)
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) errorLogs() []observer.LoggedEntry {
	return h.logs.FilterLevelExact(zapcore.ErrorLevel).All()
}
