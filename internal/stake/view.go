package stake

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Label is the action text shown for the current position.
type Label string

const (
	LabelConnectWallet Label = "Connect Wallet"
	LabelEnterAmount   Label = "Enter an amount"
	LabelInsufficient  Label = "Insufficient balance"
	LabelUnstake       Label = "Unstake"
	LabelUnstaking     Label = "Unstaking..."
)

// View is a read-only rendering of the controller.
type View struct {
	State         State    `json:"state"`
	Label         Label    `json:"label"`
	Disabled      bool     `json:"disabled"`
	Pair          string   `json:"pair"`
	Input         string   `json:"input"`
	InputError    string   `json:"input_error,omitempty"`
	Amount        *big.Int `json:"amount,omitempty"`
	StakedBalance *big.Int `json:"staked_balance,omitempty"`
	StakedDisplay string   `json:"staked_display"`
	MaxAmount     string   `json:"max_amount"`
	AtMax         bool     `json:"at_max"`
	ShowMax       bool     `json:"show_max"`
	Insufficient  bool     `json:"insufficient"`
}

// View renders the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:         c.state,
		Pair:          c.pairLabel,
		Input:         c.input,
		Amount:        copyInt(c.amount),
		StakedBalance: copyInt(c.balance),
		StakedDisplay: DisplayAmount(c.balance, c.decimals),
		MaxAmount:     FormatAmount(c.balance, c.decimals),
		Disabled:      !c.readyLocked(),
	}
	if c.inputErr != nil {
		v.InputError = c.inputErr.Error()
	}
	if c.amount != nil && c.balance != nil {
		v.AtMax = c.amount.Cmp(c.balance) == 0
		v.Insufficient = c.amount.Cmp(c.balance) > 0
	}
	v.ShowMax = c.balance != nil && c.balance.Sign() > 0 && !v.AtMax

	switch {
	case c.account == (common.Address{}):
		v.Label = LabelConnectWallet
	case c.state == Unstaking:
		v.Label = LabelUnstaking
	case c.amount == nil || c.amount.Sign() == 0:
		v.Label = LabelEnterAmount
	case v.Insufficient:
		v.Label = LabelInsufficient
	default:
		v.Label = LabelUnstake
	}
	return v
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
