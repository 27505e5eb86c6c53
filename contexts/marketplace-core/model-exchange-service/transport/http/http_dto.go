package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type InitializeMarketplaceRequest struct {
	Treasury string `json:"treasury"`
	FeeBps   uint32 `json:"fee_bps"`
}

type MarketplaceDTO struct {
	Authority  string `json:"authority"`
	Treasury   string `json:"treasury"`
	FeeBps     uint32 `json:"fee_bps"`
	AssetCount uint64 `json:"asset_count"`
	CreatedAt  string `json:"created_at"`
}

type MarketplaceResponse struct {
	Status string         `json:"status"`
	Data   MarketplaceDTO `json:"data"`
}

type RegisterAssetRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	ContentHash    string `json:"content_hash"`
	StorageURI     string `json:"storage_uri"`
	SizeBytes      uint64 `json:"size_bytes"`
	InferencePrice uint64 `json:"inference_price"`
	DownloadPrice  uint64 `json:"download_price"`
	PaymentKind    string `json:"payment_kind"`
}

type AssetDTO struct {
	AssetID         uint64 `json:"asset_id"`
	Creator         string `json:"creator"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	ContentHash     string `json:"content_hash,omitempty"`
	StorageURI      string `json:"storage_uri,omitempty"`
	SizeBytes       uint64 `json:"size_bytes"`
	InferencePrice  uint64 `json:"inference_price"`
	DownloadPrice   uint64 `json:"download_price"`
	PaymentKind     string `json:"payment_kind"`
	TotalInferences uint64 `json:"total_inferences"`
	TotalDownloads  uint64 `json:"total_downloads"`
	TotalRevenue    uint64 `json:"total_revenue"`
	IsActive        bool   `json:"is_active"`
	CreatedAt       string `json:"created_at"`
}

type AssetResponse struct {
	Status string   `json:"status"`
	Data   AssetDTO `json:"data"`
}

type AssetListResponse struct {
	Status string     `json:"status"`
	Data   []AssetDTO `json:"data"`
}

type SetAssetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

type SetAssetPricingRequest struct {
	InferencePrice *uint64 `json:"inference_price,omitempty"`
	DownloadPrice  *uint64 `json:"download_price,omitempty"`
}

type PurchaseRequest struct {
	Kind         string `json:"kind"`
	DurationDays uint64 `json:"duration_days,omitempty"`
}

type EntitlementDTO struct {
	UserID      string `json:"user_id"`
	AssetID     uint64 `json:"asset_id"`
	Kind        string `json:"kind"`
	PurchasedAt string `json:"purchased_at"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	UsageCount  uint64 `json:"usage_count"`
	IsActive    bool   `json:"is_active"`
}

type PurchaseResponse struct {
	Status        string         `json:"status"`
	Price         uint64         `json:"price"`
	ProtocolFee   uint64         `json:"protocol_fee"`
	CreatorAmount uint64         `json:"creator_amount"`
	Data          EntitlementDTO `json:"data"`
}

type AccessResponse struct {
	Status    string          `json:"status"`
	HasAccess bool            `json:"has_access"`
	Data      *EntitlementDTO `json:"data,omitempty"`
}

type EntitlementListResponse struct {
	Status string           `json:"status"`
	Data   []EntitlementDTO `json:"data"`
}

type RecordInferenceRequest struct {
	UsageHash string `json:"usage_hash"`
}

type UsageEventDTO struct {
	UserID     string `json:"user_id"`
	AssetID    uint64 `json:"asset_id"`
	UsageHash  string `json:"usage_hash"`
	RecordedAt string `json:"recorded_at"`
}

type UsageEventResponse struct {
	Status string        `json:"status"`
	Data   UsageEventDTO `json:"data"`
}

type UsageListResponse struct {
	Status string          `json:"status"`
	Data   []UsageEventDTO `json:"data"`
}

type RecordDownloadResponse struct {
	Status string `json:"status"`
}
