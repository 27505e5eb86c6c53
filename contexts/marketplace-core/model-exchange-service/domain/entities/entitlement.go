package entities

import (
	"strings"
	"time"

	domainerrors "modelmart/contexts/marketplace-core/model-exchange-service/domain/errors"
)

type EntitlementKind string

const (
	EntitlementKindInference    EntitlementKind = "inference"
	EntitlementKindDownload     EntitlementKind = "download"
	EntitlementKindSubscription EntitlementKind = "subscription"
)

func (k EntitlementKind) Valid() bool {
	switch k {
	case EntitlementKindInference, EntitlementKindDownload, EntitlementKindSubscription:
		return true
	default:
		return false
	}
}

const secondsPerDay = 86_400

// Entitlement grants one user one kind of access to one asset. The pair
// (User, AssetID) is its canonical address: at most one entitlement exists
// per pair.
type Entitlement struct {
	User        string
	AssetID     uint64
	Kind        EntitlementKind
	PurchasedAt time.Time
	ExpiresAt   *time.Time
	UsageCount  uint64
	IsActive    bool
}

func NewEntitlement(
	user string,
	assetID uint64,
	kind EntitlementKind,
	durationDays uint64,
	purchasedAt time.Time,
) (Entitlement, error) {
	user = strings.TrimSpace(user)
	if user == "" || !kind.Valid() {
		return Entitlement{}, domainerrors.ErrInvalidInput
	}

	entitlement := Entitlement{
		User:        user,
		AssetID:     assetID,
		Kind:        kind,
		PurchasedAt: purchasedAt.UTC(),
		IsActive:    true,
	}
	if kind == EntitlementKindSubscription {
		if durationDays == 0 {
			return Entitlement{}, domainerrors.ErrMissingDuration
		}
		expiresAt := purchasedAt.UTC().Add(time.Duration(durationDays) * secondsPerDay * time.Second)
		entitlement.ExpiresAt = &expiresAt
	}
	return entitlement, nil
}

// IsLive reports whether the entitlement can be used at now. Expiry is a
// derived read-time state; nothing flips a stored flag when the deadline
// passes.
func (e Entitlement) IsLive(now time.Time) bool {
	if !e.IsActive {
		return false
	}
	if e.ExpiresAt != nil && !now.UTC().Before(*e.ExpiresAt) {
		return false
	}
	return true
}

func (e Entitlement) AllowsDownload() bool {
	return e.Kind == EntitlementKindDownload || e.Kind == EntitlementKindSubscription
}
