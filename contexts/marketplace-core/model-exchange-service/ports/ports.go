package ports

import (
	"context"
	"time"

	contractsv1 "modelmart/contracts/gen/events/v1"
	"modelmart/contexts/marketplace-core/model-exchange-service/domain/entities"
)

type MarketplaceRepository interface {
	// CreateMarketplace fails with ErrMarketplaceAlreadyInitialized when the
	// singleton exists.
	CreateMarketplace(ctx context.Context, config entities.MarketplaceConfig) error
	GetMarketplace(ctx context.Context) (entities.MarketplaceConfig, error)
}

type AssetRepository interface {
	// CreateAsset assigns the dense asset id from the marketplace counter
	// and bumps the counter in the same serialization scope.
	CreateAsset(ctx context.Context, asset entities.Asset) (entities.Asset, error)
	GetAsset(ctx context.Context, assetID uint64) (entities.Asset, error)
	ListAssets(ctx context.Context, activeOnly bool) ([]entities.Asset, error)
	ListAssetsByCreator(ctx context.Context, creator string) ([]entities.Asset, error)
	UpdateAssetActive(ctx context.Context, assetID uint64, active bool) error
	UpdateAssetPricing(ctx context.Context, assetID uint64, inferencePrice *uint64, downloadPrice *uint64) error
	// ApplyPurchaseRevenue adds the purchase price to the asset's revenue
	// counter and appends the purchase event to the outbox atomically.
	ApplyPurchaseRevenue(ctx context.Context, assetID uint64, amount uint64, event EventEnvelope) error
	IncrementAssetDownloads(ctx context.Context, assetID uint64) error
}

type EntitlementRepository interface {
	// CreateEntitlement fails with ErrDuplicateEntitlement when the
	// (user, asset) address is already populated.
	CreateEntitlement(ctx context.Context, entitlement entities.Entitlement) error
	// DeleteEntitlement releases a settlement reservation after a failed
	// transfer leg. It is not a caller-facing revoke path.
	DeleteEntitlement(ctx context.Context, user string, assetID uint64) error
	GetEntitlement(ctx context.Context, user string, assetID uint64) (entities.Entitlement, error)
	ListEntitlementsByUser(ctx context.Context, user string) ([]entities.Entitlement, error)
}

type UsageRepository interface {
	// CreateInferenceUsage creates the usage event, increments the
	// entitlement usage count and the asset inference counter, and appends
	// the usage event to the outbox, all in one transaction. Fails with
	// ErrDuplicateUsage when the (user, asset, hash) address exists.
	CreateInferenceUsage(ctx context.Context, usage entities.UsageEvent, event EventEnvelope) error
	ListUsageByUser(ctx context.Context, user string, limit int) ([]entities.UsageEvent, error)
}

/// Ledger is the external value-transfer primitive. Transfer is all-or-nothing:
// a failure leaves both balances unchanged.
type Ledger interface {
	Transfer(ctx context.Context, kind entities.PaymentKind, from string, to string, amount uint64) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
