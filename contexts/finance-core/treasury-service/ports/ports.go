package ports

import (
	"context"
	"time"
)

// Kind is the currency kind a balance is held in.
type Kind string

const (
	KindNative Kind = "native"
	KindToken  Kind = "token"
)

func (k Kind) Valid() bool {
	return k == KindNative || k == KindToken
}

type AccountBalance struct {
	AccountID string
	Kind      Kind
	Amount    uint64
}

// Repository persists balances. ApplyTransfer is all-or-nothing: on any
// failure both balances are left untouched.
type Repository interface {
	Credit(ctx context.Context, kind Kind, accountID string, amount uint64) error
	ApplyTransfer(ctx context.Context, kind Kind, from string, to string, amount uint64) error
	Balance(ctx context.Context, kind Kind, accountID string) (uint64, error)
}

type Clock interface {
	Now() time.Time
}
