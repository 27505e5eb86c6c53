package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	domainerrors "modelmart/contexts/marketplace-core/model-exchange-service/domain/errors"
	"modelmart/contexts/marketplace-core/model-exchange-service/domain/entities"
	"modelmart/contexts/marketplace-core/model-exchange-service/ports"

	"github.com/google/uuid"
)

// Store implements every service port in memory. Maps are keyed by the same
// deterministic addresses the postgres schema enforces with unique indexes.
type Store struct {
	mu sync.RWMutex

	marketplace  *entities.MarketplaceConfig
	assets       map[uint64]entities.Asset
	entitlements map[string]entities.Entitlement
	usage        map[string]entities.UsageEvent
	balances     map[string]uint64
	outbox       map[string]outboxRecord
}

type outboxRecord struct {
	Message ports.OutboxMessage
	Status  string
	SentAt  *time.Time
}

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
)

func NewStore() *Store {
	return &Store{
		assets:       make(map[uint64]entities.Asset),
		entitlements: make(map[string]entities.Entitlement),
		usage:        make(map[string]entities.UsageEvent),
		balances:     make(map[string]uint64),
		outbox:       make(map[string]outboxRecord),
	}
}

func (s *Store) CreateMarketplace(_ context.Context, config entities.MarketplaceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.marketplace != nil {
		return domainerrors.ErrMarketplaceAlreadyInitialized
	}
	s.marketplace = &config
	return nil
}

func (s *Store) GetMarketplace(_ context.Context) (entities.MarketplaceConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.marketplace == nil {
		return entities.MarketplaceConfig{}, domainerrors.ErrMarketplaceNotInitialized
	}
	return *s.marketplace, nil
}

func (s *Store) CreateAsset(_ context.Context, asset entities.Asset) (entities.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.marketplace == nil {
		return entities.Asset{}, domainerrors.ErrMarketplaceNotInitialized
	}
	asset.AssetID = s.marketplace.AssetCount
	if _, exists := s.assets[asset.AssetID]; exists {
		return entities.Asset{}, domainerrors.ErrRepositoryInvariantBroke
	}
	s.assets[asset.AssetID] = asset
	s.marketplace.AssetCount++
	return asset, nil
}

func (s *Store) GetAsset(_ context.Context, assetID uint64) (entities.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return entities.Asset{}, domainerrors.ErrAssetNotFound
	}
	return asset, nil
}

func (s *Store) ListAssets(_ context.Context, activeOnly bool) ([]entities.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Asset, 0, len(s.assets))
	for _, asset := range s.assets {
		if activeOnly && !asset.IsActive {
			continue
		}
		items = append(items, asset)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].AssetID < items[j].AssetID
	})
	return items, nil
}

func (s *Store) ListAssetsByCreator(_ context.Context, creator string) ([]entities.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Asset, 0)
	for _, asset := range s.assets {
		if asset.Creator == creator {
			items = append(items, asset)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].AssetID < items[j].AssetID
	})
	return items, nil
}

func (s *Store) UpdateAssetActive(_ context.Context, assetID uint64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return domainerrors.ErrAssetNotFound
	}
	asset.IsActive = active
	s.assets[assetID] = asset
	return nil
}

func (s *Store) UpdateAssetPricing(
	_ context.Context,
	assetID uint64,
	inferencePrice *uint64,
	downloadPrice *uint64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return domainerrors.ErrAssetNotFound
	}
	if inferencePrice != nil {
		asset.InferencePrice = *inferencePrice
	}
	if downloadPrice != nil {
		asset.DownloadPrice = *downloadPrice
	}
	s.assets[assetID] = asset
	return nil
}

func (s *Store) ApplyPurchaseRevenue(
	_ context.Context,
	assetID uint64,
	amount uint64,
	event ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return domainerrors.ErrAssetNotFound
	}
	asset.TotalRevenue += amount
	s.assets[assetID] = asset
	return s.appendOutboxLocked(event)
}

func (s *Store) IncrementAssetDownloads(_ context.Context, assetID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return domainerrors.ErrAssetNotFound
	}
	asset.TotalDownloads++
	s.assets[assetID] = asset
	return nil
}

func (s *Store) CreateEntitlement(_ context.Context, entitlement entities.Entitlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entitlementKey(entitlement.User, entitlement.AssetID)
	if _, exists := s.entitlements[key]; exists {
		return domainerrors.ErrDuplicateEntitlement
	}
	s.entitlements[key] = entitlement
	return nil
}

func (s *Store) DeleteEntitlement(_ context.Context, user string, assetID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entitlementKey(user, assetID)
	if _, exists := s.entitlements[key]; !exists {
		return domainerrors.ErrEntitlementNotFound
	}
	delete(s.entitlements, key)
	return nil
}

func (s *Store) GetEntitlement(_ context.Context, user string, assetID uint64) (entities.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entitlement, ok := s.entitlements[entitlementKey(user, assetID)]
	if !ok {
		return entities.Entitlement{}, domainerrors.ErrEntitlementNotFound
	}
	return entitlement, nil
}

func (s *Store) ListEntitlementsByUser(_ context.Context, user string) ([]entities.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Entitlement, 0)
	for _, entitlement := range s.entitlements {
		if entitlement.User == user {
			items = append(items, entitlement)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].AssetID < items[j].AssetID
	})
	return items, nil
}

func (s *Store) CreateInferenceUsage(
	_ context.Context,
	usage entities.UsageEvent,
	event ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey(usage.User, usage.AssetID, usage.UsageHash)
	if _, exists := s.usage[key]; exists {
		return domainerrors.ErrDuplicateUsage
	}
	entitlement, ok := s.entitlements[entitlementKey(usage.User, usage.AssetID)]
	if !ok {
		return domainerrors.ErrEntitlementNotFound
	}
	asset, ok := s.assets[usage.AssetID]
	if !ok {
		return domainerrors.ErrAssetNotFound
	}

	s.usage[key] = usage
	entitlement.UsageCount++
	s.entitlements[entitlementKey(usage.User, usage.AssetID)] = entitlement
	asset.TotalInferences++
	s.assets[usage.AssetID] = asset
	return s.appendOutboxLocked(event)
}

func (s *Store) ListUsageByUser(_ context.Context, user string, limit int) ([]entities.UsageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	items := make([]entities.UsageEvent, 0)
	for _, usage := range s.usage {
		if usage.User == user {
			items = append(items, usage)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].RecordedAt.After(items[j].RecordedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Transfer implements the ledger port over in-memory balances so module
// tests exercise the full settlement path.
func (s *Store) Transfer(
	_ context.Context,
	kind entities.PaymentKind,
	from string,
	to string,
	amount uint64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromKey := balanceKey(kind, from)
	if s.balances[fromKey] < amount {
		return domainerrors.ErrLedgerRejected
	}
	s.balances[fromKey] -= amount
	s.balances[balanceKey(kind, to)] += amount
	return nil
}

// Deposit funds an account. Test seam only.
func (s *Store) Deposit(kind entities.PaymentKind, accountID string, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[balanceKey(kind, accountID)] += amount
}

func (s *Store) BalanceOf(kind entities.PaymentKind, accountID string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[balanceKey(kind, accountID)]
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendOutboxLocked(envelope)
}

func (s *Store) appendOutboxLocked(envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	if envelope.EventID == "" {
		return domainerrors.ErrInvalidInput
	}
	if _, exists := s.outbox[envelope.EventID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.outbox[envelope.EventID] = outboxRecord{
		Message: ports.OutboxMessage{
			OutboxID:     envelope.EventID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt.UTC(),
		},
		Status: outboxStatusPending,
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.Status == outboxStatusPending {
			items = append(items, row.Message)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[outboxID]
	if !ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	ts := sentAt.UTC()
	row.Status = outboxStatusSent
	row.SentAt = &ts
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func entitlementKey(user string, assetID uint64) string {
	return user + "|" + strconv.FormatUint(assetID, 10)
}

func usageKey(user string, assetID uint64, usageHash string) string {
	return entitlementKey(user, assetID) + "|" + usageHash
}

func balanceKey(kind entities.PaymentKind, accountID string) string {
	return string(kind) + "|" + accountID
}
