package stake

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"linkStake/internal/model"
	"linkStake/internal/wallet"
)

func TestViewAtMaxHidesMax(t *testing.T) {
	h := newHarness(t, units(100), nil)
	_, err := h.ctrl.Refresh(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SetInput("100"))

	v := h.ctrl.View()
	require.True(t, v.AtMax)
	require.False(t, v.ShowMax)
	require.False(t, v.Insufficient)
	require.Equal(t, LabelUnstake, v.Label)
	require.False(t, v.Disabled)
	require.Equal(t, "100", v.MaxAmount)
	require.Equal(t, "LINK/WETH", v.Pair)
}

func TestMaxFillsExactBalance(t *testing.T) {
	balance, _ := new(big.Int).SetString("1234567890123456789", 10)
	h := newHarness(t, balance, nil)
	require.ErrorIs(t, h.ctrl.Max(), ErrNotReady)

	_, err := h.ctrl.Refresh(context.Background())
	require.NoError(t, err)
	v := h.ctrl.View()
	require.True(t, v.ShowMax)
	require.Equal(t, "1.234567", v.StakedDisplay)

	require.NoError(t, h.ctrl.Max())
	v = h.ctrl.View()
	require.Equal(t, "1.234567890123456789", v.Input)
	require.Equal(t, 0, v.Amount.Cmp(balance))
	require.True(t, v.AtMax)
	require.False(t, v.ShowMax)
}

func TestInsufficientInputBlocksSubmit(t *testing.T) {
	h := newHarness(t, units(100), nil)
	_, err := h.ctrl.Refresh(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SetInput("150"))

	v := h.ctrl.View()
	require.True(t, v.Insufficient)
	require.Equal(t, LabelInsufficient, v.Label)
	require.True(t, v.Disabled)

	_, err = h.ctrl.Submit(context.Background())
	require.ErrorIs(t, err, ErrNotReady)
	require.Equal(t, Idle, h.ctrl.State())
	require.Zero(t, h.contract.estimates)
}

func TestUnmetPreconditionsStayIdle(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Options)
		input   string
		refresh bool
		label   Label
	}{
		{name: "no reward pool", mutate: func(o *Options) { o.Contract = nil }, input: "1", label: LabelUnstake},
		{name: "no wallet", mutate: func(o *Options) { o.Signer = nil }, input: "1", refresh: false, label: LabelConnectWallet},
		{name: "empty input", input: "", refresh: true, label: LabelEnterAmount},
		{name: "zero input", input: "0", refresh: true, label: LabelEnterAmount},
		{name: "balance unknown", input: "1", refresh: false, label: LabelUnstake},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, units(100), tc.mutate)
			if tc.refresh {
				_, err := h.ctrl.Refresh(context.Background())
				require.NoError(t, err)
			}
			require.NoError(t, h.ctrl.SetInput(tc.input))

			_, err := h.ctrl.Submit(context.Background())
			require.ErrorIs(t, err, ErrNotReady)
			require.Equal(t, Idle, h.ctrl.State())
			require.Equal(t, tc.label, h.ctrl.View().Label)
			require.True(t, h.ctrl.View().Disabled)
			require.Zero(t, h.logs.Len())
			require.Zero(t, testutil.ToFloat64(h.metrics.submissions))
		})
	}
}

func TestInvalidInputIsKept(t *testing.T) {
	h := newHarness(t, units(1), nil)
	err := h.ctrl.SetInput("1.2.3")
	require.ErrorIs(t, err, ErrInvalidAmount)

	v := h.ctrl.View()
	require.Equal(t, "1.2.3", v.Input)
	require.NotEmpty(t, v.InputError)
	require.Nil(t, v.Amount)
	require.Equal(t, LabelEnterAmount, v.Label)
}

func TestOversizedInputIsRejectedPromptly(t *testing.T) {
	h := newHarness(t, units(1), nil)
	done := make(chan error, 1)
	go func() { done <- h.ctrl.SetInput("1e100000000") }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrInvalidAmount)
	case <-time.After(2 * time.Second):
		t.Fatal("SetInput did not return")
	}
	require.Equal(t, LabelEnterAmount, h.ctrl.View().Label)
}

func TestSubmitAndSettleOnBalanceChange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, units(100), nil)
	_, err := h.ctrl.Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SetInput("100"))

	tx, err := h.ctrl.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, Unstaking, h.ctrl.State())
	require.Equal(t, LabelUnstaking, h.ctrl.View().Label)
	require.Equal(t, []uint64{110000}, h.contract.gasLimits)
	require.Equal(t, 0, h.contract.amounts[0].Cmp(units(100)))
	require.ErrorIs(t, h.ctrl.SetInput("1"), ErrUnstaking)

	rec, ok := h.tracker.Get(1, tx.Hash().Hex())
	require.True(t, ok)
	require.Equal(t, "Unstake 100 LINK/WETH LP", rec.Summary)
	require.Equal(t, accountAddr.Hex(), rec.From)
	require.Equal(t, rewardsAddr.Hex(), rec.To)
	require.Equal(t, model.TxPending, rec.Status)

	// Unchanged balance keeps the flow open.
	_, err = h.ctrl.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, Unstaking, h.ctrl.State())

	h.contract.setBalance(big.NewInt(0))
	_, err = h.ctrl.Refresh(ctx)
	require.NoError(t, err)

	v := h.ctrl.View()
	require.Equal(t, Idle, v.State)
	require.Empty(t, v.Input)
	require.Nil(t, v.Amount)
	require.Equal(t, "0", v.MaxAmount)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, h.ctrl.WaitIdle(waitCtx))
	require.Equal(t, float64(1), testutil.ToFloat64(h.metrics.submissions))
}

func TestBalanceReadDuringEstimationDoesNotSettle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, units(100), nil)
	_, err := h.ctrl.Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SetInput("40"))

	h.contract.onEstimate = func() {
		h.ctrl.ObserveBalance(units(60))
	}
	_, err = h.ctrl.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, Unstaking, h.ctrl.State())

	h.contract.setBalance(units(60))
	_, err = h.ctrl.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, Idle, h.ctrl.State())
}

func TestUserRejectionIsSilent(t *testing.T) {
	rejections := []error{
		wallet.ErrUserRejected,
		rpcError{code: 4001, msg: "MetaMask Tx Signature: User denied transaction signature."},
	}
	for _, rejection := range rejections {
		h := newHarness(t, units(100), nil)
		h.contract.sendErr = rejection
		_, err := h.ctrl.Refresh(context.Background())
		require.NoError(t, err)
		require.NoError(t, h.ctrl.SetInput("10"))

		_, err = h.ctrl.Submit(context.Background())
		require.Error(t, err)
		require.True(t, wallet.IsUserRejection(err))
		require.Equal(t, Idle, h.ctrl.State())
		require.Equal(t, "10", h.ctrl.View().Input)
		require.Empty(t, h.errorLogs())
		require.Equal(t, float64(1), testutil.ToFloat64(h.metrics.results.WithLabelValues(resultRejected)))
		require.Empty(t, h.tracker.List())
	}
}

func TestOtherFailuresAreLogged(t *testing.T) {
	h := newHarness(t, units(100), nil)
	h.contract.estimateErr = rpcError{code: -32000, msg: "insufficient funds"}
	_, err := h.ctrl.Refresh(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SetInput("10"))

	_, err = h.ctrl.Submit(context.Background())
	require.Error(t, err)
	require.False(t, wallet.IsUserRejection(err))
	require.Equal(t, Idle, h.ctrl.State())

	logs := h.errorLogs()
	require.Len(t, logs, 1)
	require.Equal(t, "unstake failed", logs[0].Message)
	require.Equal(t, float64(1), testutil.ToFloat64(h.metrics.results.WithLabelValues(resultFailed)))

	// The flow can be retried.
	h.contract.estimateErr = nil
	_, err = h.ctrl.Submit(context.Background())
	require.NoError(t, err)
}

func TestAwaitConfirmation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h := newHarness(t, units(100), nil)
	_, err := h.ctrl.Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SetInput("100"))

	tx, err := h.ctrl.Submit(ctx)
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		h.contract.setBalance(big.NewInt(0))
		h.receipts.mine(tx.Hash(), types.ReceiptStatusSuccessful, 123)
	}()

	outcome, err := h.ctrl.AwaitConfirmation(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, tx.Hash().Hex(), outcome.TxHash)
	require.Equal(t, uint64(123), outcome.BlockNumber)
	require.Equal(t, Idle, h.ctrl.State())

	rec, ok := h.tracker.Get(1, tx.Hash().Hex())
	require.True(t, ok)
	require.Equal(t, model.TxConfirmed, rec.Status)
	require.Equal(t, uint64(123), rec.BlockNumber)
	require.NotEmpty(t, rec.ConfirmedAt)
	require.Equal(t, float64(1), testutil.ToFloat64(h.metrics.results.WithLabelValues(resultConfirmed)))
}

func TestAwaitConfirmationStampsBlockTime(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	blocks := &fakeBlocks{times: map[uint64]uint64{123: 1700000000}}
	local := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	h := newHarness(t, units(100), func(o *Options) {
		o.Blocks = blocks
		o.Now = func() time.Time { return local }
	})
	_, err := h.ctrl.Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SetInput("10"))

	tx, err := h.ctrl.Submit(ctx)
	require.NoError(t, err)
	h.contract.setBalance(units(90))
	h.receipts.mine(tx.Hash(), types.ReceiptStatusSuccessful, 123)

	_, err = h.ctrl.AwaitConfirmation(ctx, tx)
	require.NoError(t, err)

	rec, ok := h.tracker.Get(1, tx.Hash().Hex())
	require.True(t, ok)
	require.Equal(t, "2023-11-14T22:13:20Z", rec.ConfirmedAt)
	require.Equal(t, local.Format(time.RFC3339), rec.AddedAt)
}

func TestAwaitConfirmationFallsBackToLocalClock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	local := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	h := newHarness(t, units(100), func(o *Options) {
		o.Blocks = &fakeBlocks{err: errors.New("header unavailable")}
		o.Now = func() time.Time { return local }
	})
	_, err := h.ctrl.Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SetInput("10"))

	tx, err := h.ctrl.Submit(ctx)
	require.NoError(t, err)
	h.receipts.mine(tx.Hash(), types.ReceiptStatusSuccessful, 124)

	_, err = h.ctrl.AwaitConfirmation(ctx, tx)
	require.NoError(t, err)

	rec, ok := h.tracker.Get(1, tx.Hash().Hex())
	require.True(t, ok)
	require.Equal(t, "2030-01-01T00:00:00Z", rec.ConfirmedAt)
	require.Len(t, h.logs.FilterMessage("read block timestamp failed").All(), 1)
}

func TestAwaitConfirmationReverted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h := newHarness(t, units(100), nil)
	_, err := h.ctrl.Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SetInput("5"))

	tx, err := h.ctrl.Submit(ctx)
	require.NoError(t, err)
	h.receipts.mine(tx.Hash(), types.ReceiptStatusFailed, 99)

	_, err = h.ctrl.AwaitConfirmation(ctx, tx)
	require.ErrorIs(t, err, ErrReverted)
	require.Equal(t, Idle, h.ctrl.State())
	require.Equal(t, "5", h.ctrl.View().Input)

	rec, _ := h.tracker.Get(1, tx.Hash().Hex())
	require.Equal(t, model.TxFailed, rec.Status)
	require.Len(t, h.errorLogs(), 1)
}

func TestAwaitConfirmationHonoursContext(t *testing.T) {
	h := newHarness(t, units(100), nil)
	to := common.HexToAddress("0x01")
	tx := types.NewTx(&types.LegacyTx{To: &to, Gas: 1, GasPrice: big.NewInt(1), Value: new(big.Int)})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.ctrl.AwaitConfirmation(ctx, tx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Greater(t, h.receipts.lookups, 0)
}

func TestWatchSettlesAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, units(100), nil)
	ctx, cancel := context.WithCancel(context.Background())
	_, err := h.ctrl.Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SetInput("100"))
	_, err = h.ctrl.Submit(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Watch(ctx, 5*time.Millisecond) }()

	h.contract.setBalance(big.NewInt(0))
	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	require.NoError(t, h.ctrl.WaitIdle(waitCtx))
	require.Empty(t, h.ctrl.View().Input)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWatchLogsPollFailures(t *testing.T) {
	h := newHarness(t, units(1), nil)
	h.contract.balanceErr = errBoom

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := h.ctrl.Watch(ctx, 5*time.Millisecond)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.NotZero(t, h.logs.FilterMessage("staked balance poll failed").Len())
}

func TestCloseDiscardsLateUpdates(t *testing.T) {
	h := newHarness(t, units(100), nil)
	_, err := h.ctrl.Refresh(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SetInput("100"))
	_, err = h.ctrl.Submit(context.Background())
	require.NoError(t, err)

	h.ctrl.Close()
	h.ctrl.ObserveBalance(big.NewInt(0))
	require.Equal(t, Unstaking, h.ctrl.State())
	require.ErrorIs(t, h.ctrl.SetInput("1"), ErrClosed)

	_, err = h.ctrl.Refresh(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	require.NoError(t, h.ctrl.Watch(context.Background(), time.Millisecond))
	require.ErrorIs(t, h.ctrl.WaitIdle(context.Background()), ErrClosed)

	// Close is idempotent.
	h.ctrl.Close()
}
