package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ConfirmingWallet asks for interactive approval before delegating to the inner signer.
// Anything other than "y" or "yes" rejects with ErrUserRejected.
type ConfirmingWallet struct {
	inner  Signer
	reader *bufio.Reader
	out    io.Writer
}

func NewConfirmingWallet(inner Signer, in io.Reader, out io.Writer) *ConfirmingWallet {
	return &ConfirmingWallet{inner: inner, reader: bufio.NewReader(in), out: out}
}

func (w *ConfirmingWallet) Address() common.Address {
	return w.inner.Address()
}

func (w *ConfirmingWallet) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	to := "contract creation"
	if tx.To() != nil {
		to = tx.To().Hex()
	}
	fmt.Fprintf(w.out, "sign transaction from %s to %s (nonce %d, gas %d) on chain %s? [y/N]: ",
		w.inner.Address().Hex(), to, tx.Nonce(), tx.Gas(), chainID)

	line, err := w.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return w.inner.SignTx(ctx, tx, chainID)
	default:
		return nil, ErrUserRejected
	}
}
