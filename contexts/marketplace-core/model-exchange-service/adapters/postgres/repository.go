package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	domainerrors "modelmart/contexts/marketplace-core/model-exchange-service/domain/errors"
	"modelmart/contexts/marketplace-core/model-exchange-service/domain/entities"
	"modelmart/contexts/marketplace-core/model-exchange-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"

	// marketplaceSingletonID pins the config table to one row; the primary
	// key rejects a second initialize.
	marketplaceSingletonID = 1
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&marketplaceModel{},
		&assetModel{},
		&entitlementModel{},
		&usageEventModel{},
		&outboxModel{},
	)
}

func (r *Repository) CreateMarketplace(ctx context.Context, config entities.MarketplaceConfig) error {
	row := marketplaceModel{
		SingletonID: marketplaceSingletonID,
		Authority:   config.Authority,
		Treasury:    config.Treasury,
		FeeBps:      config.FeeBps,
		AssetCount:  config.AssetCount,
		CreatedAt:   config.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrMarketplaceAlreadyInitialized
		}
		return err
	}
	return nil
}

func (r *Repository) GetMarketplace(ctx context.Context) (entities.MarketplaceConfig, error) {
	var row marketplaceModel
	err := r.db.WithContext(ctx).
		Where("singleton_id = ?", marketplaceSingletonID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.MarketplaceConfig{}, domainerrors.ErrMarketplaceNotInitialized
		}
		return entities.MarketplaceConfig{}, err
	}
	return row.toEntity(), nil
}

// CreateAsset locks the marketplace row, assigns the next dense asset id and
// bumps the counter in the same transaction, so concurrent registrations
// serialize on the config record.
func (r *Repository) CreateAsset(ctx context.Context, asset entities.Asset) (entities.Asset, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var config marketplaceModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("singleton_id = ?", marketplaceSingletonID).
			First(&config).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrMarketplaceNotInitialized
		}
		if err != nil {
			return err
		}

		asset.AssetID = config.AssetCount
		row := assetModelFromEntity(asset)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariantBroke
			}
			return err
		}

		return tx.Model(&marketplaceModel{}).
			Where("singleton_id = ?", marketplaceSingletonID).
			Update("asset_count", gorm.Expr("asset_count + 1")).
			Error
	})
	if err != nil {
		return entities.Asset{}, err
	}
	return asset, nil
}

func (r *Repository) GetAsset(ctx context.Context, assetID uint64) (entities.Asset, error) {
	var row assetModel
	err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Asset{}, domainerrors.ErrAssetNotFound
		}
		return entities.Asset{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListAssets(ctx context.Context, activeOnly bool) ([]entities.Asset, error) {
	tx := r.db.WithContext(ctx).Model(&assetModel{}).Order("asset_id ASC")
	if activeOnly {
		tx = tx.Where("is_active = ?", true)
	}
	var rows []assetModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return assetEntities(rows), nil
}

func (r *Repository) ListAssetsByCreator(ctx context.Context, creator string) ([]entities.Asset, error) {
	var rows []assetModel
	if err := r.db.WithContext(ctx).
		Where("creator = ?", creator).
		Order("asset_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	return assetEntities(rows), nil
}

func (r *Repository) UpdateAssetActive(ctx context.Context, assetID uint64, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&assetModel{}).
		Where("asset_id = ?", assetID).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) UpdateAssetPricing(
	ctx context.Context,
	assetID uint64,
	inferencePrice *uint64,
	downloadPrice *uint64,
) error {
	updates := map[string]any{}
	if inferencePrice != nil {
		updates["inference_price"] = *inferencePrice
	}
	if downloadPrice != nil {
		updates["download_price"] = *downloadPrice
	}
	if len(updates) == 0 {
		return domainerrors.ErrInvalidInput
	}

	result := r.db.WithContext(ctx).
		Model(&assetModel{}).
		Where("asset_id = ?", assetID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) ApplyPurchaseRevenue(
	ctx context.Context,
	assetID uint64,
	amount uint64,
	event ports.EventEnvelope,
) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&assetModel{}).
			Where("asset_id = ?", assetID).
			Update("total_revenue", gorm.Expr("total_revenue + ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrAssetNotFound
		}
		return appendOutboxTx(tx, event, payload)
	})
}

func (r *Repository) IncrementAssetDownloads(ctx context.Context, assetID uint64) error {
	result := r.db.WithContext(ctx).
		Model(&assetModel{}).
		Where("asset_id = ?", assetID).
		Update("total_downloads", gorm.Expr("total_downloads + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) CreateEntitlement(ctx context.Context, entitlement entities.Entitlement) error {
	row := entitlementModelFromEntity(entitlement)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateEntitlement
		}
		return err
	}
	return nil
}

func (r *Repository) DeleteEntitlement(ctx context.Context, user string, assetID uint64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND asset_id = ?", user, assetID).
		Delete(&entitlementModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrEntitlementNotFound
	}
	return nil
}

func (r *Repository) GetEntitlement(ctx context.Context, user string, assetID uint64) (entities.Entitlement, error) {
	var row entitlementModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND asset_id = ?", user, assetID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Entitlement{}, domainerrors.ErrEntitlementNotFound
		}
		return entities.Entitlement{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListEntitlementsByUser(ctx context.Context, user string) ([]entities.Entitlement, error) {
	var rows []entitlementModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", user).
		Order("asset_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Entitlement, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CreateInferenceUsage(
	ctx context.Context,
	usage entities.UsageEvent,
	event ports.EventEnvelope,
) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := usageEventModel{
			UserID:     usage.User,
			AssetID:    usage.AssetID,
			UsageHash:  usage.UsageHash,
			RecordedAt: usage.RecordedAt.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrDuplicateUsage
			}
			return err
		}

		result := tx.Model(&entitlementModel{}).
			Where("user_id = ? AND asset_id = ?", usage.User, usage.AssetID).
			Update("usage_count", gorm.Expr("usage_count + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrEntitlementNotFound
		}

		result = tx.Model(&assetModel{}).
			Where("asset_id = ?", usage.AssetID).
			Update("total_inferences", gorm.Expr("total_inferences + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrAssetNotFound
		}

		return appendOutboxTx(tx, event, payload)
	})
}

func (r *Repository) ListUsageByUser(ctx context.Context, user string, limit int) ([]entities.UsageEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []usageEventModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", user).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.UsageEvent, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.UsageEvent{
			User:       row.UserID,
			AssetID:    row.AssetID,
			UsageHash:  row.UsageHash,
			RecordedAt: row.RecordedAt,
		})
	}
	return items, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return appendOutboxTx(r.db.WithContext(ctx), envelope, payload)
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func appendOutboxTx(tx *gorm.DB, event ports.EventEnvelope, payload []byte) error {
	row := outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    event.OccurredAt.UTC(),
	}
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return err
	}
	return nil
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

type marketplaceModel struct {
	SingletonID int       `gorm:"column:singleton_id;primaryKey"`
	Authority   string    `gorm:"column:authority"`
	Treasury    string    `gorm:"column:treasury"`
	FeeBps      uint32    `gorm:"column:fee_bps"`
	AssetCount  uint64    `gorm:"column:asset_count"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (marketplaceModel) TableName() string {
	return "marketplace_config"
}

func (m marketplaceModel) toEntity() entities.MarketplaceConfig {
	return entities.MarketplaceConfig{
		Authority:  m.Authority,
		Treasury:   m.Treasury,
		FeeBps:     m.FeeBps,
		AssetCount: m.AssetCount,
		CreatedAt:  m.CreatedAt,
	}
}

type assetModel struct {
	AssetID         uint64    `gorm:"column:asset_id;primaryKey"`
	Creator         string    `gorm:"column:creator;index"`
	Name            string    `gorm:"column:name;size:100"`
	Description     string    `gorm:"column:description;size:500"`
	ContentHash     string    `gorm:"column:content_hash;size:64"`
	StorageURI      string    `gorm:"column:storage_uri;size:200"`
	SizeBytes       uint64    `gorm:"column:size_bytes"`
	InferencePrice  uint64    `gorm:"column:inference_price"`
	DownloadPrice   uint64    `gorm:"column:download_price"`
	PaymentKind     string    `gorm:"column:payment_kind"`
	TotalInferences uint64    `gorm:"column:total_inferences"`
	TotalDownloads  uint64    `gorm:"column:total_downloads"`
	TotalRevenue    uint64    `gorm:"column:total_revenue"`
	IsActive        bool      `gorm:"column:is_active"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (assetModel) TableName() string {
	return "marketplace_assets"
}

func assetModelFromEntity(asset entities.Asset) assetModel {
	return assetModel{
		AssetID:         asset.AssetID,
		Creator:         asset.Creator,
		Name:            asset.Name,
		Description:     asset.Description,
		ContentHash:     asset.ContentHash,
		StorageURI:      asset.StorageURI,
		SizeBytes:       asset.SizeBytes,
		InferencePrice:  asset.InferencePrice,
		DownloadPrice:   asset.DownloadPrice,
		PaymentKind:     string(asset.PaymentKind),
		TotalInferences: asset.TotalInferences,
		TotalDownloads:  asset.TotalDownloads,
		TotalRevenue:    asset.TotalRevenue,
		IsActive:        asset.IsActive,
		CreatedAt:       asset.CreatedAt.UTC(),
	}
}

func (m assetModel) toEntity() entities.Asset {
	return entities.Asset{
		AssetID:         m.AssetID,
		Creator:         m.Creator,
		Name:            m.Name,
		Description:     m.Description,
		ContentHash:     m.ContentHash,
		StorageURI:      m.StorageURI,
		SizeBytes:       m.SizeBytes,
		InferencePrice:  m.InferencePrice,
		DownloadPrice:   m.DownloadPrice,
		PaymentKind:     entities.PaymentKind(m.PaymentKind),
		TotalInferences: m.TotalInferences,
		TotalDownloads:  m.TotalDownloads,
		TotalRevenue:    m.TotalRevenue,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
	}
}

func assetEntities(rows []assetModel) []entities.Asset {
	items := make([]entities.Asset, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

type entitlementModel struct {
	UserID      string     `gorm:"column:user_id;primaryKey"`
	AssetID     uint64     `gorm:"column:asset_id;primaryKey"`
	Kind        string     `gorm:"column:kind"`
	PurchasedAt time.Time  `gorm:"column:purchased_at"`
	ExpiresAt   *time.Time `gorm:"column:expires_at"`
	UsageCount  uint64     `gorm:"column:usage_count"`
	IsActive    bool       `gorm:"column:is_active"`
}

func (entitlementModel) TableName() string {
	return "entitlements"
}

func entitlementModelFromEntity(entitlement entities.Entitlement) entitlementModel {
	row := entitlementModel{
		UserID:      entitlement.User,
		AssetID:     entitlement.AssetID,
		Kind:        string(entitlement.Kind),
		PurchasedAt: entitlement.PurchasedAt.UTC(),
		UsageCount:  entitlement.UsageCount,
		IsActive:    entitlement.IsActive,
	}
	if entitlement.ExpiresAt != nil {
		ts := entitlement.ExpiresAt.UTC()
		row.ExpiresAt = &ts
	}
	return row
}

func (m entitlementModel) toEntity() entities.Entitlement {
	entitlement := entities.Entitlement{
		User:        m.UserID,
		AssetID:     m.AssetID,
		Kind:        entities.EntitlementKind(m.Kind),
		PurchasedAt: m.PurchasedAt,
		UsageCount:  m.UsageCount,
		IsActive:    m.IsActive,
	}
	if m.ExpiresAt != nil {
		ts := m.ExpiresAt.UTC()
		entitlement.ExpiresAt = &ts
	}
	return entitlement
}

type usageEventModel struct {
	UserID     string    `gorm:"column:user_id;primaryKey"`
	AssetID    uint64    `gorm:"column:asset_id;primaryKey"`
	UsageHash  string    `gorm:"column:usage_hash;primaryKey;size:64"`
	RecordedAt time.Time `gorm:"column:recorded_at"`
}

func (usageEventModel) TableName() string {
	return "usage_events"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "marketplace_outbox"
}
