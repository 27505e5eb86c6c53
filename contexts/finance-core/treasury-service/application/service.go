package application

import (
	"context"
	"log/slog"
	"strings"

	domainerrors "modelmart/contexts/finance-core/treasury-service/domain/errors"
	"modelmart/contexts/finance-core/treasury-service/ports"
)

type Service struct {
	Repo   ports.Repository
	Logger *slog.Logger
}

func (s Service) Deposit(ctx context.Context, kind ports.Kind, accountID string, amount uint64) (uint64, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return 0, domainerrors.ErrInvalidAccount
	}
	if !kind.Valid() {
		return 0, domainerrors.ErrInvalidKind
	}
	if amount == 0 {
		return 0, domainerrors.ErrInvalidAmount
	}

	if err := s.Repo.Credit(ctx, kind, accountID, amount); err != nil {
		return 0, err
	}
	balance, err := s.Repo.Balance(ctx, kind, accountID)
	if err != nil {
		return 0, err
	}

	resolveLogger(s.Logger).Info("account funded",
		"event", "treasury_deposit",
		"module", "finance-core/treasury-service",
		"layer", "application",
		"account_id", accountID,
		"kind", string(kind),
		"amount", amount,
	)
	return balance, nil
}

// Transfer moves amount from one account to another. A zero amount is a
// successful no-op so callers can skip building degenerate legs.
func (s Service) Transfer(ctx context.Context, kind ports.Kind, from string, to string, amount uint64) error {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" {
		return domainerrors.ErrInvalidAccount
	}
	if !kind.Valid() {
		return domainerrors.ErrInvalidKind
	}
	if from == to {
		return domainerrors.ErrSameAccount
	}
	if amount == 0 {
		return nil
	}

	if err := s.Repo.ApplyTransfer(ctx, kind, from, to, amount); err != nil {
		return err
	}

	resolveLogger(s.Logger).Info("transfer applied",
		"event", "treasury_transfer",
		"module", "finance-core/treasury-service",
		"layer", "application",
		"from", from,
		"to", to,
		"kind", string(kind),
		"amount", amount,
	)
	return nil
}

func (s Service) Balance(ctx context.Context, kind ports.Kind, accountID string) (ports.AccountBalance, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ports.AccountBalance{}, domainerrors.ErrInvalidAccount
	}
	if !kind.Valid() {
		return ports.AccountBalance{}, domainerrors.ErrInvalidKind
	}

	amount, err := s.Repo.Balance(ctx, kind, accountID)
	if err != nil {
		return ports.AccountBalance{}, err
	}
	return ports.AccountBalance{
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
	}, nil
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
