package stake

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"linkStake/internal/dex"
	"linkStake/internal/model"
	"linkStake/internal/storage"
	"linkStake/internal/wallet"
)

var (
	ErrNotReady  = errors.New("unstake preconditions not met")
	ErrUnstaking = errors.New("unstake in progress")
	ErrClosed    = errors.New("controller closed")
	ErrReverted  = errors.New("unstake transaction reverted")
)

// State is the controller's position in the unstake flow.
type State int

const (
	Idle State = iota
	Unstaking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Unstaking:
		return "unstaking"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Contract is the subset of a staking rewards contract the flow needs.
type Contract interface {
	Address() common.Address
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	EstimateUnstakeAndClaimRewards(ctx context.Context, from common.Address, amount *big.Int) (uint64, error)
	UnstakeAndClaimRewards(ctx context.Context, signer dex.TxSigner, amount *big.Int, gasLimit uint64) (*types.Transaction, error)
}

// ReceiptSource looks up mined transactions. It returns ethereum.NotFound while pending.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// BlockTimeSource resolves a block number to its header timestamp in unix seconds.
type BlockTimeSource interface {
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Options wires a Controller. Contract is nil when the pair has no reward pool and
// Account is zero when no wallet is connected; both leave the flow unable to submit.
type Options struct {
	ChainID             uint64
	Liquidity           model.LiquidityToken
	PairLabel           string
	Account             common.Address
	Signer              dex.TxSigner
	Contract            Contract
	Receipts            ReceiptSource
	Blocks              BlockTimeSource
	Tracker             storage.TxStore
	Metrics             *Metrics
	Logger              *zap.Logger
	Now                 func() time.Time
	ReceiptPollInterval time.Duration
}

// Controller drives a single unstake position: amount entry, submission and
// reconciliation against the on-chain staked balance.
type Controller struct {
	chainID     uint64
	decimals    uint8
	pairLabel   string
	account     common.Address
	signer      dex.TxSigner
	contract    Contract
	receipts    ReceiptSource
	blocks      BlockTimeSource
	tracker     storage.TxStore
	metrics     *Metrics
	logger      *zap.Logger
	now         func() time.Time
	receiptPoll time.Duration

	mu          sync.Mutex
	state       State
	input       string
	amount      *big.Int
	inputErr    error
	balance     *big.Int
	snapshot    *big.Int
	armed       bool
	submittedAt time.Time
	idle        chan struct{}
	closed      bool
	done        chan struct{}
}

func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	poll := opts.ReceiptPollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	account := opts.Account
	if account == (common.Address{}) && opts.Signer != nil {
		account = opts.Signer.Address()
	}
	label := opts.PairLabel
	if label == "" {
		label = opts.Liquidity.PairLabel()
	}
	idle := make(chan struct{})
	close(idle)

	return &Controller{
		chainID:     opts.ChainID,
		decimals:    opts.Liquidity.Decimals,
		pairLabel:   label,
		account:     account,
		signer:      opts.Signer,
		contract:    opts.Contract,
		receipts:    opts.Receipts,
		blocks:      opts.Blocks,
		tracker:     opts.Tracker,
		metrics:     opts.Metrics,
		logger:      logger,
		now:         now,
		receiptPoll: poll,
		idle:        idle,
		done:        make(chan struct{}),
	}
}

// SetInput replaces the typed amount. The input is kept even when it does not parse.
func (c *Controller) SetInput(value string) error {
	amount, err := ParseAmount(value, c.decimals)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.state != Idle {
		return ErrUnstaking
	}
	c.input = value
	c.amount = amount
	c.inputErr = err
	return err
}

// Max fills the input with the exact staked balance.
func (c *Controller) Max() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.state != Idle {
		return ErrUnstaking
	}
	if c.balance == nil {
		return ErrNotReady
	}
	c.input = FormatAmount(c.balance, c.decimals)
	c.amount = new(big.Int).Set(c.balance)
	c.inputErr = nil
	return nil
}

// State returns the current flow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Account returns the connected account, zero when none.
func (c *Controller) Account() common.Address {
	return c.account
}

// Submit sends unstakeAndClaimRewards for the entered amount.
func (c *Controller) Submit(ctx context.Context) (*types.Transaction, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if !c.readyLocked() {
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	amount := new(big.Int).Set(c.amount)
	c.state = Unstaking
	c.idle = make(chan struct{})
	c.snapshot = new(big.Int).Set(c.balance)
	c.armed = false
	c.submittedAt = c.now()
	c.mu.Unlock()

	c.metrics.submitted()

	estimate, err := c.contract.EstimateUnstakeAndClaimRewards(ctx, c.account, amount)
	if err != nil {
		return nil, c.fail(fmt.Errorf("estimate gas: %w", err))
	}
	tx, err := c.contract.UnstakeAndClaimRewards(ctx, c.signer, amount, CalculateGasMargin(estimate))
	if err != nil {
		return nil, c.fail(fmt.Errorf("submit unstake: %w", err))
	}

	// Balance reads only reconcile after the wallet has answered.
	c.mu.Lock()
	if !c.closed {
		c.armed = true
	}
	c.mu.Unlock()

	c.track(ctx, tx, amount)
	c.logger.Info("unstake submitted",
		zap.String("tx", tx.Hash().Hex()),
		zap.String("account", c.account.Hex()),
		zap.String("amount", amount.String()),
		zap.Uint64("gas", tx.Gas()),
	)
	return tx, nil
}

// ObserveBalance records a staked balance read. While unstaking, a balance that
// differs from the one seen at submission ends the flow and clears the input.
func (c *Controller) ObserveBalance(balance *big.Int) {
	if balance == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.balance = new(big.Int).Set(balance)
	if c.state != Unstaking || !c.armed || c.snapshot == nil || balance.Cmp(c.snapshot) == 0 {
		return
	}
	elapsed := c.now().Sub(c.submittedAt)
	c.toIdleLocked(true)
	c.metrics.settled(elapsed)
	c.logger.Info("staked balance changed, unstake settled",
		zap.String("balance", balance.String()),
		zap.Duration("elapsed", elapsed),
	)
}

// Refresh reads balanceOf(account) from the rewards contract and reconciles it.
func (c *Controller) Refresh(ctx context.Context) (*big.Int, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	if c.contract == nil || c.account == (common.Address{}) {
		return nil, ErrNotReady
	}
	balance, err := c.contract.BalanceOf(ctx, c.account)
	if err != nil {
		return nil, fmt.Errorf("read staked balance: %w", err)
	}
	c.ObserveBalance(balance)
	return balance, nil
}

// Watch polls the staked balance until ctx is done or the controller is closed.
func (c *Controller) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid poll interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.Refresh(ctx); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("staked balance poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-ticker.C:
		}
	}
}

// WaitIdle blocks until the flow is back in Idle.
func (c *Controller) WaitIdle(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AwaitConfirmation waits for the receipt of tx, records the outcome with the
// tracker and refreshes the staked balance.
func (c *Controller) AwaitConfirmation(ctx context.Context, tx *types.Transaction) (model.UnstakeOutcome, error) {
	if tx == nil {
		return model.UnstakeOutcome{}, fmt.Errorf("transaction is nil")
	}
	if c.receipts == nil {
		return model.UnstakeOutcome{}, fmt.Errorf("receipt source is nil")
	}

	receipt, err := c.waitReceipt(ctx, tx.Hash())
	if err != nil {
		return model.UnstakeOutcome{}, err
	}

	outcome := model.UnstakeOutcome{TxHash: tx.Hash().Hex()}
	if receipt.BlockNumber != nil {
		outcome.BlockNumber = receipt.BlockNumber.Uint64()
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		c.finalize(ctx, tx, model.TxFailed, outcome.BlockNumber)
		c.mu.Lock()
		if !c.closed && c.state == Unstaking {
			c.toIdleLocked(false)
		}
		c.mu.Unlock()
		c.metrics.result(resultReverted)
		c.logger.Error("unstake transaction reverted",
			zap.String("tx", outcome.TxHash),
			zap.Uint64("block", outcome.BlockNumber),
		)
		return outcome, ErrReverted
	}

	c.finalize(ctx, tx, model.TxConfirmed, outcome.BlockNumber)
	c.metrics.result(resultConfirmed)

	if c.contract != nil {
		decoded, err := dex.DecodeUnstakeReceipt(receipt, c.contract.Address())
		if err != nil {
			c.logger.Warn("decode unstake receipt failed", zap.String("tx", outcome.TxHash), zap.Error(err))
		} else {
			outcome = decoded
		}
	}

	if _, err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrClosed) {
		c.logger.Warn("refresh after confirmation failed", zap.Error(err))
	}
	return outcome, nil
}

// Close stops watchers and discards any result that arrives afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

func (c *Controller) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	for {
		receipt, err := c.receipts.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Debug("receipt lookup failed", zap.String("tx", hash.Hex()), zap.Error(err))
		}

		timer := time.NewTimer(c.receiptPoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-c.done:
			timer.Stop()
			return nil, ErrClosed
		case <-timer.C:
		}
	}
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	if !c.closed {
		c.toIdleLocked(false)
	}
	c.mu.Unlock()

	if wallet.IsUserRejection(err) {
		c.metrics.result(resultRejected)
		return err
	}
	c.metrics.result(resultFailed)
	c.logger.Error("unstake failed", zap.Error(err))
	return err
}

func (c *Controller) track(ctx context.Context, tx *types.Transaction, amount *big.Int) {
	if c.tracker == nil {
		return
	}
	to := ""
	if tx.To() != nil {
		to = tx.To().Hex()
	}
	rec := model.TxRecord{
		ChainID: c.chainID,
		Hash:    tx.Hash().Hex(),
		From:    c.account.Hex(),
		To:      to,
		Nonce:   tx.Nonce(),
		Summary: c.summary(amount),
		Status:  model.TxPending,
		AddedAt: c.now().UTC().Format(time.RFC3339),
	}
	if err := c.tracker.PutTransaction(ctx, rec); err != nil {
		c.logger.Warn("track transaction failed", zap.String("tx", rec.Hash), zap.Error(err))
	}
}

func (c *Controller) finalize(ctx context.Context, tx *types.Transaction, status model.TxStatus, block uint64) {
	if c.tracker == nil {
		return
	}
	if err := c.tracker.FinalizeTransaction(ctx, c.chainID, tx.Hash().Hex(), status, block, c.confirmedAt(ctx, block)); err != nil {
		c.logger.Warn("finalize transaction failed", zap.String("tx", tx.Hash().Hex()), zap.Error(err))
	}
}

// confirmedAt is the timestamp of the block that included the transaction,
// or the local clock when the block time cannot be read.
func (c *Controller) confirmedAt(ctx context.Context, block uint64) time.Time {
	if c.blocks == nil || block == 0 {
		return c.now()
	}
	ts, err := c.blocks.BlockTimestamp(ctx, block)
	if err != nil {
		c.logger.Warn("read block timestamp failed", zap.Uint64("block", block), zap.Error(err))
		return c.now()
	}
	return time.Unix(int64(ts), 0).UTC()
}

func (c *Controller) summary(amount *big.Int) string {
	return fmt.Sprintf("Unstake %s %s LP", Significant(amount, c.decimals, 3), c.pairLabel)
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// readyLocked must be called with c.mu held.
func (c *Controller) readyLocked() bool {
	return c.state == Idle &&
		c.contract != nil &&
		c.signer != nil &&
		c.account != (common.Address{}) &&
		c.amount != nil && c.amount.Sign() > 0 &&
		c.balance != nil && c.amount.Cmp(c.balance) <= 0
}

// toIdleLocked must be called with c.mu held.
func (c *Controller) toIdleLocked(clearInput bool) {
	if c.state == Unstaking {
		close(c.idle)
	}
	c.state = Idle
	c.armed = false
	c.snapshot = nil
	if clearInput {
		c.input = ""
		c.amount = nil
		c.inputErr = nil
	}
}
