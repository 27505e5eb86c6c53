package errors

import "errors"

var (
	ErrInvalidAccount    = errors.New("account id is required")
	ErrInvalidKind       = errors.New("currency kind must be native or token")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrSameAccount       = errors.New("transfer requires distinct accounts")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
