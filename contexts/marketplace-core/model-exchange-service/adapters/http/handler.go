package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"modelmart/contexts/marketplace-core/model-exchange-service/application"
	"modelmart/contexts/marketplace-core/model-exchange-service/domain/entities"
	httptransport "modelmart/contexts/marketplace-core/model-exchange-service/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) InitializeMarketplaceHandler(
	ctx context.Context,
	callerID string,
	req httptransport.InitializeMarketplaceRequest,
) (httptransport.MarketplaceResponse, error) {
	config, err := h.Service.InitializeMarketplace(ctx, callerID, req.Treasury, req.FeeBps)
	if err != nil {
		return httptransport.MarketplaceResponse{}, err
	}
	return httptransport.MarketplaceResponse{
		Status: "success",
		Data:   toMarketplaceDTO(config),
	}, nil
}

func (h Handler) GetMarketplaceHandler(ctx context.Context) (httptransport.MarketplaceResponse, error) {
	config, err := h.Service.GetMarketplace(ctx)
	if err != nil {
		return httptransport.MarketplaceResponse{}, err
	}
	return httptransport.MarketplaceResponse{
		Status: "success",
		Data:   toMarketplaceDTO(config),
	}, nil
}

func (h Handler) RegisterAssetHandler(
	ctx context.Context,
	callerID string,
	req httptransport.RegisterAssetRequest,
) (httptransport.AssetResponse, error) {
	asset, err := h.Service.RegisterAsset(ctx, callerID, application.RegisterAssetInput{
		Name:           req.Name,
		Description:    req.Description,
		ContentHash:    req.ContentHash,
		StorageURI:     req.StorageURI,
		SizeBytes:      req.SizeBytes,
		InferencePrice: req.InferencePrice,
		DownloadPrice:  req.DownloadPrice,
		PaymentKind:    entities.PaymentKind(req.PaymentKind),
	})
	if err != nil {
		return httptransport.AssetResponse{}, err
	}
	return httptransport.AssetResponse{
		Status: "success",
		Data:   toAssetDTO(asset),
	}, nil
}

func (h Handler) GetAssetHandler(ctx context.Context, assetID uint64) (httptransport.AssetResponse, error) {
	asset, err := h.Service.GetAsset(ctx, assetID)
	if err != nil {
		return httptransport.AssetResponse{}, err
	}
	return httptransport.AssetResponse{
		Status: "success",
		Data:   toAssetDTO(asset),
	}, nil
}

func (h Handler) ListAssetsHandler(ctx context.Context, activeOnly bool) (httptransport.AssetListResponse, error) {
	assets, err := h.Service.ListAssets(ctx, activeOnly)
	if err != nil {
		return httptransport.AssetListResponse{}, err
	}
	return httptransport.AssetListResponse{
		Status: "success",
		Data:   toAssetDTOs(assets),
	}, nil
}

func (h Handler) ListAssetsByCreatorHandler(
	ctx context.Context,
	creatorID string,
) (httptransport.AssetListResponse, error) {
	assets, err := h.Service.ListAssetsByCreator(ctx, creatorID)
	if err != nil {
		return httptransport.AssetListResponse{}, err
	}
	return httptransport.AssetListResponse{
		Status: "success",
		Data:   toAssetDTOs(assets),
	}, nil
}

func (h Handler) SetAssetActiveHandler(
	ctx context.Context,
	callerID string,
	assetID uint64,
	req httptransport.SetAssetActiveRequest,
) (httptransport.AssetResponse, error) {
	asset, err := h.Service.SetAssetActive(ctx, callerID, assetID, req.IsActive)
	if err != nil {
		return httptransport.AssetResponse{}, err
	}
	return httptransport.AssetResponse{
		Status: "success",
		Data:   toAssetDTO(asset),
	}, nil
}

func (h Handler) SetAssetPricingHandler(
	ctx context.Context,
	callerID string,
	assetID uint64,
	req httptransport.SetAssetPricingRequest,
) (httptransport.AssetResponse, error) {
	asset, err := h.Service.SetAssetPricing(ctx, callerID, assetID, req.InferencePrice, req.DownloadPrice)
	if err != nil {
		return httptransport.AssetResponse{}, err
	}
	return httptransport.AssetResponse{
		Status: "success",
		Data:   toAssetDTO(asset),
	}, nil
}

func (h Handler) PurchaseHandler(
	ctx context.Context,
	callerID string,
	assetID uint64,
	req httptransport.PurchaseRequest,
) (httptransport.PurchaseResponse, error) {
	result, err := h.Service.Purchase(ctx, callerID, assetID, entities.EntitlementKind(req.Kind), req.DurationDays)
	if err != nil {
		return httptransport.PurchaseResponse{}, err
	}
	return httptransport.PurchaseResponse{
		Status:        "success",
		Price:         result.Price,
		ProtocolFee:   result.ProtocolFee,
		CreatorAmount: result.CreatorAmount,
		Data:          toEntitlementDTO(result.Entitlement),
	}, nil
}

func (h Handler) CheckAccessHandler(
	ctx context.Context,
	userID string,
	assetID uint64,
) (httptransport.AccessResponse, error) {
	status, err := h.Service.CheckAccess(ctx, userID, assetID)
	if err != nil {
		return httptransport.AccessResponse{}, err
	}
	resp := httptransport.AccessResponse{
		Status:    "success",
		HasAccess: status.HasAccess,
	}
	if status.Entitlement.User != "" {
		dto := toEntitlementDTO(status.Entitlement)
		resp.Data = &dto
	}
	return resp, nil
}

func (h Handler) ListEntitlementsHandler(
	ctx context.Context,
	userID string,
) (httptransport.EntitlementListResponse, error) {
	entitlements, err := h.Service.ListEntitlementsByUser(ctx, userID)
	if err != nil {
		return httptransport.EntitlementListResponse{}, err
	}
	resp := httptransport.EntitlementListResponse{
		Status: "success",
		Data:   make([]httptransport.EntitlementDTO, 0, len(entitlements)),
	}
	for _, entitlement := range entitlements {
		resp.Data = append(resp.Data, toEntitlementDTO(entitlement))
	}
	return resp, nil
}

func (h Handler) RecordInferenceHandler(
	ctx context.Context,
	callerID string,
	assetID uint64,
	req httptransport.RecordInferenceRequest,
) (httptransport.UsageEventResponse, error) {
	usage, err := h.Service.RecordInference(ctx, callerID, assetID, req.UsageHash)
	if err != nil {
		return httptransport.UsageEventResponse{}, err
	}
	return httptransport.UsageEventResponse{
		Status: "success",
		Data:   toUsageEventDTO(usage),
	}, nil
}

func (h Handler) RecordDownloadHandler(
	ctx context.Context,
	callerID string,
	assetID uint64,
) (httptransport.RecordDownloadResponse, error) {
	if err := h.Service.RecordDownload(ctx, callerID, assetID); err != nil {
		return httptransport.RecordDownloadResponse{}, err
	}
	return httptransport.RecordDownloadResponse{Status: "success"}, nil
}

func (h Handler) ListUsageHandler(
	ctx context.Context,
	userID string,
	limit int,
) (httptransport.UsageListResponse, error) {
	events, err := h.Service.ListUsageByUser(ctx, userID, limit)
	if err != nil {
		return httptransport.UsageListResponse{}, err
	}
	resp := httptransport.UsageListResponse{
		Status: "success",
		Data:   make([]httptransport.UsageEventDTO, 0, len(events)),
	}
	for _, event := range events {
		resp.Data = append(resp.Data, toUsageEventDTO(event))
	}
	return resp, nil
}

func toMarketplaceDTO(config entities.MarketplaceConfig) httptransport.MarketplaceDTO {
	return httptransport.MarketplaceDTO{
		Authority:  config.Authority,
		Treasury:   config.Treasury,
		FeeBps:     config.FeeBps,
		AssetCount: config.AssetCount,
		CreatedAt:  config.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toAssetDTO(asset entities.Asset) httptransport.AssetDTO {
	return httptransport.AssetDTO{
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
		CreatedAt:       asset.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toAssetDTOs(assets []entities.Asset) []httptransport.AssetDTO {
	items := make([]httptransport.AssetDTO, 0, len(assets))
	for _, asset := range assets {
		items = append(items, toAssetDTO(asset))
	}
	return items
}

func toEntitlementDTO(entitlement entities.Entitlement) httptransport.EntitlementDTO {
	dto := httptransport.EntitlementDTO{
		UserID:      entitlement.User,
		AssetID:     entitlement.AssetID,
		Kind:        string(entitlement.Kind),
		PurchasedAt: entitlement.PurchasedAt.UTC().Format(time.RFC3339),
		UsageCount:  entitlement.UsageCount,
		IsActive:    entitlement.IsActive,
	}
	if entitlement.ExpiresAt != nil {
		dto.ExpiresAt = entitlement.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toUsageEventDTO(usage entities.UsageEvent) httptransport.UsageEventDTO {
	return httptransport.UsageEventDTO{
		UserID:     usage.User,
		AssetID:    usage.AssetID,
		UsageHash:  usage.UsageHash,
		RecordedAt: usage.RecordedAt.UTC().Format(time.RFC3339),
	}
}
