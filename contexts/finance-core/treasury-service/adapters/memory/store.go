package memory

import (
	"context"
	"sync"
	"time"

	domainerrors "modelmart/contexts/finance-core/treasury-service/domain/errors"
	"modelmart/contexts/finance-core/treasury-service/ports"
)

type Store struct {
	mu       sync.RWMutex
	balances map[string]uint64
}

func NewStore() *Store {
	return &Store{
		balances: make(map[string]uint64),
	}
}

func (s *Store) Credit(_ context.Context, kind ports.Kind, accountID string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[balanceKey(kind, accountID)] += amount
	return nil
}

func (s *Store) ApplyTransfer(_ context.Context, kind ports.Kind, from string, to string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromKey := balanceKey(kind, from)
	if s.balances[fromKey] < amount {
		return domainerrors.ErrInsufficientFunds
	}
	s.balances[fromKey] -= amount
	s.balances[balanceKey(kind, to)] += amount
	return nil
}

func (s *Store) Balance(_ context.Context, kind ports.Kind, accountID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[balanceKey(kind, accountID)], nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func balanceKey(kind ports.Kind, accountID string) string {
	return string(kind) + "|" + accountID
}
