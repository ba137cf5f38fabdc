package wallet

import "errors"

// RejectedCode is the EIP-1193 error code a wallet returns when the user declines a request.
const RejectedCode = 4001

// ErrUserRejected is returned when the account holder declines to sign.
var ErrUserRejected error = rejectedError{}

type rejectedError struct{}

func (rejectedError) Error() string  { return "user rejected the request" }
func (rejectedError) ErrorCode() int { return RejectedCode }

type codedError interface {
	ErrorCode() int
}

// IsUserRejection reports whether err, or any error it wraps, carries the rejection code.
// Remote signers surface it as an rpc.Error with the same code.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	var coded codedError
	if errors.As(err, &coded) {
		return coded.ErrorCode() == RejectedCode
	}
	return false
}
