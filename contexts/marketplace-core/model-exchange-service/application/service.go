package application

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	domainerrors "modelmart/contexts/marketplace-core/model-exchange-service/domain/errors"
	"modelmart/contexts/marketplace-core/model-exchange-service/domain/entities"
	"modelmart/contexts/marketplace-core/model-exchange-service/ports"
)

const sourceService = "model-exchange-service"

type Service struct {
	Marketplace  ports.MarketplaceRepository
	Assets       ports.AssetRepository
	Entitlements ports.EntitlementRepository
	Usage        ports.UsageRepository
	Ledger       ports.Ledger
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator

	DisableMarketplaceEventEmission bool

	Logger *slog.Logger
}

type RegisterAssetInput struct {
	Name           string
	Description    string
	ContentHash    string
	StorageURI     string
	SizeBytes      uint64
	InferencePrice uint64
	DownloadPrice  uint64
	PaymentKind    entities.PaymentKind
}

type PurchaseResult struct {
	Entitlement   entities.Entitlement
	Price         uint64
	ProtocolFee   uint64
	CreatorAmount uint64
}

type AccessStatus struct {
	HasAccess   bool
	Entitlement entities.Entitlement
}

func (s Service) InitializeMarketplace(
	ctx context.Context,
	authority string,
	treasury string,
	feeBps uint32,
) (entities.MarketplaceConfig, error) {
	config, err := entities.NewMarketplaceConfig(authority, treasury, feeBps, s.now())
	if err != nil {
		return entities.MarketplaceConfig{}, err
	}
	if err := s.Marketplace.CreateMarketplace(ctx, config); err != nil {
		return entities.MarketplaceConfig{}, err
	}

	ResolveLogger(s.Logger).Info("marketplace initialized",
		"event", "marketplace_initialized",
		"module", "marketplace-core/model-exchange-service",
		"layer", "application",
		"authority", config.Authority,
		"treasury", config.Treasury,
		"fee_bps", config.FeeBps,
	)
	return config, nil
}

func (s Service) GetMarketplace(ctx context.Context) (entities.MarketplaceConfig, error) {
	return s.Marketplace.GetMarketplace(ctx)
}

func (s Service) RegisterAsset(
	ctx context.Context,
	creator string,
	input RegisterAssetInput,
) (entities.Asset, error) {
	draft, err := entities.NewAsset(
		creator,
		input.Name,
		input.Description,
		input.ContentHash,
		input.StorageURI,
		input.SizeBytes,
		input.InferencePrice,
		input.DownloadPrice,
		input.PaymentKind,
		s.now(),
	)
	if err != nil {
		return entities.Asset{}, err
	}

	asset, err := s.Assets.CreateAsset(ctx, draft)
	if err != nil {
		return entities.Asset{}, err
	}
	if err := s.appendAssetRegisteredOutbox(ctx, asset); err != nil {
		return entities.Asset{}, err
	}

	ResolveLogger(s.Logger).Info("asset registered",
		"event", "asset_registered",
		"module", "marketplace-core/model-exchange-service",
		"layer", "application",
		"asset_id", asset.AssetID,
		"creator", asset.Creator,
		"payment_kind", string(asset.PaymentKind),
	)
	return asset, nil
}

func (s Service) GetAsset(ctx context.Context, assetID uint64) (entities.Asset, error) {
	return s.Assets.GetAsset(ctx, assetID)
}

func (s Service) ListAssets(ctx context.Context, activeOnly bool) ([]entities.Asset, error) {
	return s.Assets.ListAssets(ctx, activeOnly)
}

func (s Service) ListAssetsByCreator(ctx context.Context, creator string) ([]entities.Asset, error) {
	if strings.TrimSpace(creator) == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	return s.Assets.ListAssetsByCreator(ctx, strings.TrimSpace(creator))
}

func (s Service) SetAssetActive(
	ctx context.Context,
	caller string,
	assetID uint64,
	active bool,
) (entities.Asset, error) {
	asset, err := s.authorizeCreator(ctx, caller, assetID)
	if err != nil {
		return entities.Asset{}, err
	}
	if err := s.Assets.UpdateAssetActive(ctx, assetID, active); err != nil {
		return entities.Asset{}, err
	}
	asset.IsActive = active

	ResolveLogger(s.Logger).Info("asset active flag updated",
		"event", "asset_active_updated",
		"module", "marketplace-core/model-exchange-service",
		"layer", "application",
		"asset_id", assetID,
		"is_active", active,
	)
	return asset, nil
}

func (s Service) SetAssetPricing(
	ctx context.Context,
	caller string,
	assetID uint64,
	inferencePrice *uint64,
	downloadPrice *uint64,
) (entities.Asset, error) {
	asset, err := s.authorizeCreator(ctx, caller, assetID)
	if err != nil {
		return entities.Asset{}, err
	}
	if inferencePrice == nil && downloadPrice == nil {
		return entities.Asset{}, domainerrors.ErrInvalidInput
	}
	if err := s.Assets.UpdateAssetPricing(ctx, assetID, inferencePrice, downloadPrice); err != nil {
		return entities.Asset{}, err
	}
	if inferencePrice != nil {
		asset.InferencePrice = *inferencePrice
	}
	if downloadPrice != nil {
		asset.DownloadPrice = *downloadPrice
	}

	ResolveLogger(s.Logger).Info("asset pricing updated",
		"event", "asset_pricing_updated",
		"module", "marketplace-core/model-exchange-service",
		"layer", "application",
		"asset_id", assetID,
		"inference_price", asset.InferencePrice,
		"download_price", asset.DownloadPrice,
	)
	return asset, nil
}

// Purchase validates the request, reserves the entitlement at its
// deterministic (user, asset) address, then settles through the ledger with
// compensation: the reservation is the serialization point, so a concurrent
// duplicate fails before any money moves, and a failed treasury leg reverses
// the creator leg before releasing the reservation.
func (s Service) Purchase(
	ctx context.Context,
	user string,
	assetID uint64,
	kind entities.EntitlementKind,
	durationDays uint64,
) (PurchaseResult, error) {
	user = strings.TrimSpace(user)
	if user == "" || !kind.Valid() {
		return PurchaseResult{}, domainerrors.ErrInvalidInput
	}

	config, err := s.Marketplace.GetMarketplace(ctx)
	if err != nil {
		return PurchaseResult{}, err
	}
	asset, err := s.Assets.GetAsset(ctx, assetID)
	if err != nil {
		return PurchaseResult{}, err
	}
	if !asset.IsPurchasable() {
		return PurchaseResult{}, domainerrors.ErrAssetInactive
	}

	price, err := resolvePrice(asset, kind, durationDays)
	if err != nil {
		return PurchaseResult{}, err
	}
	creatorAmount, protocolFee, err := feeSplit(price, config.FeeBps)
	if err != nil {
		return PurchaseResult{}, err
	}

	entitlement, err := entities.NewEntitlement(user, assetID, kind, durationDays, s.now())
	if err != nil {
		return PurchaseResult{}, err
	}
	if err := s.Entitlements.CreateEntitlement(ctx, entitlement); err != nil {
		return PurchaseResult{}, err
	}

	if err := s.settle(ctx, asset, entitlement, creatorAmount, protocolFee, config.Treasury); err != nil {
		return PurchaseResult{}, err
	}
	if err := s.applyPurchaseRevenue(ctx, asset, entitlement, price, protocolFee, creatorAmount); err != nil {
		return PurchaseResult{}, err
	}

	ResolveLogger(s.Logger).Info("entitlement purchased",
		"event", "entitlement_purchased",
		"module", "marketplace-core/model-exchange-service",
		"layer", "application",
		"user_id", user,
		"asset_id", assetID,
		"kind", string(kind),
		"price", price,
		"protocol_fee", protocolFee,
		"creator_amount", creatorAmount,
	)
	return PurchaseResult{
		Entitlement:   entitlement,
		Price:         price,
		ProtocolFee:   protocolFee,
		CreatorAmount: creatorAmount,
	}, nil
}

func (s Service) settle(
	ctx context.Context,
	asset entities.Asset,
	entitlement entities.Entitlement,
	creatorAmount uint64,
	protocolFee uint64,
	treasury string,
) error {
	if creatorAmount > 0 {
		if err := s.Ledger.Transfer(ctx, asset.PaymentKind, entitlement.User, asset.Creator, creatorAmount); err != nil {
			s.releaseReservation(ctx, entitlement)
			return err
		}
	}
	if protocolFee > 0 {
		if err := s.Ledger.Transfer(ctx, asset.PaymentKind, entitlement.User, treasury, protocolFee); err != nil {
			if creatorAmount > 0 {
				if reverseErr := s.Ledger.Transfer(ctx, asset.PaymentKind, asset.Creator, entitlement.User, creatorAmount); reverseErr != nil {
					ResolveLogger(s.Logger).Error("creator leg reversal failed",
						"event", "purchase_compensation_failed",
						"module", "marketplace-core/model-exchange-service",
						"layer", "application",
						"user_id", entitlement.User,
						"asset_id", entitlement.AssetID,
						"error", reverseErr.Error(),
					)
				}
			}
			s.releaseReservation(ctx, entitlement)
			return err
		}
	}
	return nil
}

func (s Service) releaseReservation(ctx context.Context, entitlement entities.Entitlement) {
	if err := s.Entitlements.DeleteEntitlement(ctx, entitlement.User, entitlement.AssetID); err != nil &&
		!errors.Is(err, domainerrors.ErrEntitlementNotFound) {
		ResolveLogger(s.Logger).Error("entitlement reservation release failed",
			"event", "purchase_reservation_release_failed",
			"module", "marketplace-core/model-exchange-service",
			"layer", "application",
			"user_id", entitlement.User,
			"asset_id", entitlement.AssetID,
			"error", err.Error(),
		)
	}
}

func (s Service) CheckAccess(ctx context.Context, user string, assetID uint64) (AccessStatus, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return AccessStatus{}, domainerrors.ErrInvalidInput
	}

	entitlement, err := s.Entitlements.GetEntitlement(ctx, user, assetID)
	if errors.Is(err, domainerrors.ErrEntitlementNotFound) {
		return AccessStatus{}, nil
	}
	if err != nil {
		return AccessStatus{}, err
	}
	return AccessStatus{
		HasAccess:   entitlement.IsLive(s.now()),
		Entitlement: entitlement,
	}, nil
}

func (s Service) ListEntitlementsByUser(ctx context.Context, user string) ([]entities.Entitlement, error) {
	if strings.TrimSpace(user) == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	return s.Entitlements.ListEntitlementsByUser(ctx, strings.TrimSpace(user))
}

func (s Service) RecordInference(
	ctx context.Context,
	user string,
	assetID uint64,
	usageHash string,
) (entities.UsageEvent, error) {
	usage, err := entities.NewUsageEvent(user, assetID, usageHash, s.now())
	if err != nil {
		return entities.UsageEvent{}, err
	}
	if err := s.requireLiveEntitlement(ctx, usage.User, assetID, nil); err != nil {
		return entities.UsageEvent{}, err
	}

	envelope, err := s.buildUsageRecordedEnvelope(ctx, usage)
	if err != nil {
		return entities.UsageEvent{}, err
	}
	if err := s.Usage.CreateInferenceUsage(ctx, usage, envelope); err != nil {
		return entities.UsageEvent{}, err
	}

	ResolveLogger(s.Logger).Info("inference usage recorded",
		"event", "usage_recorded",
		"module", "marketplace-core/model-exchange-service",
		"layer", "application",
		"user_id", usage.User,
		"asset_id", assetID,
		"usage_hash", usage.UsageHash,
	)
	return usage, nil
}

func (s Service) RecordDownload(ctx context.Context, user string, assetID uint64) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return domainerrors.ErrInvalidInput
	}
	requireDownload := func(e entities.Entitlement) error {
		if !e.AllowsDownload() {
			return domainerrors.ErrWrongEntitlementKind
		}
		return nil
	}
	if err := s.requireLiveEntitlement(ctx, user, assetID, requireDownload); err != nil {
		return err
	}
	if err := s.Assets.IncrementAssetDownloads(ctx, assetID); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("download recorded",
		"event", "download_recorded",
		"module", "marketplace-core/model-exchange-service",
		"layer", "application",
		"user_id", user,
		"asset_id", assetID,
	)
	return nil
}

func (s Service) ListUsageByUser(ctx context.Context, user string, limit int) ([]entities.UsageEvent, error) {
	if strings.TrimSpace(user) == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	if limit <= 0 {
		limit = 50
	}
	return s.Usage.ListUsageByUser(ctx, strings.TrimSpace(user), limit)
}

func (s Service) authorizeCreator(ctx context.Context, caller string, assetID uint64) (entities.Asset, error) {
	if strings.TrimSpace(caller) == "" {
		return entities.Asset{}, domainerrors.ErrInvalidInput
	}
	asset, err := s.Assets.GetAsset(ctx, assetID)
	if err != nil {
		return entities.Asset{}, err
	}
	if !asset.OwnedBy(caller) {
		return entities.Asset{}, domainerrors.ErrNotAssetCreator
	}
	return asset, nil
}

func (s Service) requireLiveEntitlement(
	ctx context.Context,
	user string,
	assetID uint64,
	extra func(entities.Entitlement) error,
) error {
	entitlement, err := s.Entitlements.GetEntitlement(ctx, user, assetID)
	if err != nil {
		return err
	}
	if !entitlement.IsActive {
		return domainerrors.ErrEntitlementInactive
	}
	if entitlement.ExpiresAt != nil && !s.now().Before(*entitlement.ExpiresAt) {
		return domainerrors.ErrEntitlementExpired
	}
	if extra != nil {
		return extra(entitlement)
	}
	return nil
}

func (s Service) applyPurchaseRevenue(
	ctx context.Context,
	asset entities.Asset,
	entitlement entities.Entitlement,
	price uint64,
	protocolFee uint64,
	creatorAmount uint64,
) error {
	envelope, err := s.buildPurchasedEnvelope(ctx, asset, entitlement, price, protocolFee, creatorAmount)
	if err != nil {
		return err
	}
	return s.Assets.ApplyPurchaseRevenue(ctx, asset.AssetID, price, envelope)
}

func (s Service) buildPurchasedEnvelope(
	ctx context.Context,
	asset entities.Asset,
	entitlement entities.Entitlement,
	price uint64,
	protocolFee uint64,
	creatorAmount uint64,
) (ports.EventEnvelope, error) {
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	payload := map[string]any{
		"user_id":        entitlement.User,
		"asset_id":       entitlement.AssetID,
		"kind":           string(entitlement.Kind),
		"price":          price,
		"protocol_fee":   protocolFee,
		"creator_amount": creatorAmount,
		"purchased_at":   entitlement.PurchasedAt.UTC().Format(time.RFC3339),
	}
	if entitlement.ExpiresAt != nil {
		payload["expires_at"] = entitlement.ExpiresAt.UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        "entitlement.purchased",
		OccurredAt:       entitlement.PurchasedAt.UTC(),
		SourceService:    sourceService,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "asset_id",
		PartitionKey:     strconv.FormatUint(asset.AssetID, 10),
		Data:             data,
	}, nil
}

func (s Service) buildUsageRecordedEnvelope(
	ctx context.Context,
	usage entities.UsageEvent,
) (ports.EventEnvelope, error) {
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	data, err := json.Marshal(map[string]any{
		"user_id":     usage.User,
		"asset_id":    usage.AssetID,
		"usage_hash":  usage.UsageHash,
		"recorded_at": usage.RecordedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        "usage.recorded",
		OccurredAt:       usage.RecordedAt.UTC(),
		SourceService:    sourceService,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "asset_id",
		PartitionKey:     strconv.FormatUint(usage.AssetID, 10),
		Data:             data,
	}, nil
}

func (s Service) appendAssetRegisteredOutbox(ctx context.Context, asset entities.Asset) error {
	if s.Outbox == nil || s.DisableMarketplaceEventEmission {
		return nil
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]any{
		"asset_id":        asset.AssetID,
		"creator":         asset.Creator,
		"name":            asset.Name,
		"payment_kind":    string(asset.PaymentKind),
		"inference_price": asset.InferencePrice,
		"download_price":  asset.DownloadPrice,
		"registered_at":   asset.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return s.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        "asset.registered",
		OccurredAt:       asset.CreatedAt.UTC(),
		SourceService:    sourceService,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "asset_id",
		PartitionKey:     strconv.FormatUint(asset.AssetID, 10),
		Data:             data,
	})
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

// resolvePrice maps the entitlement kind to the asset's pricing.
// Subscription price scales the inference price by the requested days.
func resolvePrice(asset entities.Asset, kind entities.EntitlementKind, durationDays uint64) (uint64, error) {
	switch kind {
	case entities.EntitlementKindInference:
		return asset.InferencePrice, nil
	case entities.EntitlementKindDownload:
		return asset.DownloadPrice, nil
	case entities.EntitlementKindSubscription:
		if durationDays == 0 {
			return 0, domainerrors.ErrMissingDuration
		}
		if asset.InferencePrice != 0 && durationDays > math.MaxUint64/asset.InferencePrice {
			return 0, domainerrors.ErrAmountOverflow
		}
		return asset.InferencePrice * durationDays, nil
	default:
		return 0, domainerrors.ErrInvalidInput
	}
}

// feeSplit computes the basis-point split with exact integer conservation:
// creatorAmount + protocolFee == price for every input.
func feeSplit(price uint64, feeBps uint32) (creatorAmount uint64, protocolFee uint64, err error) {
	if feeBps > entities.MaxFeeBps {
		return 0, 0, domainerrors.ErrFeeBpsTooHigh
	}
	if feeBps > 0 && price > math.MaxUint64/uint64(feeBps) {
		return 0, 0, domainerrors.ErrAmountOverflow
	}
	protocolFee = price * uint64(feeBps) / entities.MaxFeeBps
	return price - protocolFee, protocolFee, nil
}
