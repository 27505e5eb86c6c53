package memory

import (
	"context"
	"errors"
	"testing"

	domainerrors "modelmart/contexts/finance-core/treasury-service/domain/errors"
	"modelmart/contexts/finance-core/treasury-service/ports"
)

func TestStoreBalancesAreIsolatedByKind(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Credit(ctx, ports.KindNative, "account-1", 100); err != nil {
		t.Fatalf("credit native: %v", err)
	}
	if err := store.Credit(ctx, ports.KindToken, "account-1", 40); err != nil {
		t.Fatalf("credit token: %v", err)
	}

	native, _ := store.Balance(ctx, ports.KindNative, "account-1")
	token, _ := store.Balance(ctx, ports.KindToken, "account-1")
	if native != 100 || token != 40 {
		t.Fatalf("balances = %d/%d, want 100/40", native, token)
	}
}

func TestStoreApplyTransferMovesFunds(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Credit(ctx, ports.KindNative, "from-1", 70); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := store.ApplyTransfer(ctx, ports.KindNative, "from-1", "to-1", 30); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	from, _ := store.Balance(ctx, ports.KindNative, "from-1")
	to, _ := store.Balance(ctx, ports.KindNative, "to-1")
	if from != 40 || to != 30 {
		t.Fatalf("balances = %d/%d, want 40/30", from, to)
	}
}

func TestStoreApplyTransferRejectsOverdraft(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Credit(ctx, ports.KindNative, "from-1", 20); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := store.ApplyTransfer(ctx, ports.KindNative, "from-1", "to-1", 21); !errors.Is(err, domainerrors.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	from, _ := store.Balance(ctx, ports.KindNative, "from-1")
	to, _ := store.Balance(ctx, ports.KindNative, "to-1")
	if from != 20 || to != 0 {
		t.Fatalf("failed transfer must not move funds, balances = %d/%d", from, to)
	}
}
