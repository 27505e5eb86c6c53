package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	modelexchangeservice "modelmart/contexts/marketplace-core/model-exchange-service"
	"modelmart/contexts/marketplace-core/model-exchange-service/adapters/memory"
	"modelmart/contexts/marketplace-core/model-exchange-service/domain/entities"
	exchangeerrors "modelmart/contexts/marketplace-core/model-exchange-service/domain/errors"
	httptransport "modelmart/contexts/marketplace-core/model-exchange-service/transport/http"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func newClockedModule(clock *fakeClock) (modelexchangeservice.Module, *memory.Store) {
	store := memory.NewStore()
	module := modelexchangeservice.NewModule(modelexchangeservice.Dependencies{
		Marketplace:  store,
		Assets:       store,
		Entitlements: store,
		Usage:        store,
		Ledger:       store,
		Outbox:       store,
		Clock:        clock,
		IDGenerator:  store,
	})
	module.Store = store
	return module, store
}

func setupMarket(t *testing.T, module modelexchangeservice.Module, feeBps uint32) {
	t.Helper()
	if _, err := module.Handler.InitializeMarketplaceHandler(context.Background(), "authority-1", httptransport.InitializeMarketplaceRequest{
		Treasury: "treasury-1",
		FeeBps:   feeBps,
	}); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
}

func TestPurchaseSplitsFeeAtBasisPoints(t *testing.T) {
	module := modelexchangeservice.NewInMemoryModule(nil)
	ctx := context.Background()

	setupMarket(t, module, 250)
	asset := registerTestAsset(t, module, "creator-1", httptransport.RegisterAssetRequest{
		Name:          "paid-model",
		DownloadPrice: 1000,
	})
	module.Store.Deposit(entities.PaymentKindNative, "buyer-1", 1000)

	resp, err := module.Handler.PurchaseHandler(ctx, "buyer-1", asset.Data.AssetID, httptransport.PurchaseRequest{
		Kind: "download",
	})
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}
	if resp.Price != 1000 || resp.ProtocolFee != 25 || resp.CreatorAmount != 975 {
		t.Fatalf("split = price %d fee %d creator %d", resp.Price, resp.ProtocolFee, resp.CreatorAmount)
	}

	if got := module.Store.BalanceOf(entities.PaymentKindNative, "buyer-1"); got != 0 {
		t.Fatalf("buyer balance = %d, want 0", got)
	}
	if got := module.Store.BalanceOf(entities.PaymentKindNative, "creator-1"); got != 975 {
		t.Fatalf("creator balance = %d, want 975", got)
	}
	if got := module.Store.BalanceOf(entities.PaymentKindNative, "treasury-1"); got != 25 {
		t.Fatalf("treasury balance = %d, want 25", got)
	}

	assetAfter, err := module.Handler.GetAssetHandler(ctx, asset.Data.AssetID)
	if err != nil {
		t.Fatalf("get asset failed: %v", err)
	}
	if assetAfter.Data.TotalRevenue != 1000 {
		t.Fatalf("asset revenue = %d, want full price", assetAfter.Data.TotalRevenue)
	}
}

func TestPurchaseIsOncePerUserAndAsset(t *testing.T) {
	module := modelexchangeservice.NewInMemoryModule(nil)
	ctx := context.Background()

	setupMarket(t, module, 250)
	asset := registerTestAsset(t, module, "creator-1", httptransport.RegisterAssetRequest{
		Name:          "single-model",
		DownloadPrice: 100,
	})
	module.Store.Deposit(entities.PaymentKindNative, "buyer-1", 500)

	if _, err := module.Handler.PurchaseHandler(ctx, "buyer-1", asset.Data.AssetID, httptransport.PurchaseRequest{
		Kind: "download",
	}); err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}

	_, err := module.Handler.PurchaseHandler(ctx, "buyer-1", asset.Data.AssetID, httptransport.PurchaseRequest{
		Kind: "download",
	})
	if !errors.Is(err, exchangeerrors.ErrDuplicateEntitlement) {
		t.Fatalf("expected ErrDuplicateEntitlement, got %v", err)
	}

	if got := module.Store.BalanceOf(entities.PaymentKindNative, "buyer-1"); got != 400 {
		t.Fatalf("duplicate purchase must not move funds, buyer balance = %d", got)
	}
}

func TestPurchaseRejectedWhenBuyerCannotPay(t *testing.T) {
	module := modelexchangeservice.NewInMemoryModule(nil)
	ctx := context.Background()

	setupMarket(t, module, 250)
	asset := registerTestAsset(t, module, "creator-1", httptransport.RegisterAssetRequest{
		Name:          "pricey-model",
		DownloadPrice: 10000,
	})
	module.Store.Deposit(entities.PaymentKindNative, "buyer-1", 10)

	_, err := module.Handler.PurchaseHandler(ctx, "buyer-1", asset.Data.AssetID, httptransport.PurchaseRequest{
		Kind: "download",
	})
	if !errors.Is(err, exchangeerrors.ErrLedgerRejected) {
		t.Fatalf("expected ErrLedgerRejected, got %v", err)
	}

	access, err := module.Handler.CheckAccessHandler(ctx, "buyer-1", asset.Data.AssetID)
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if access.HasAccess {
		t.Fatalf("failed purchase must not leave an entitlement behind")
	}
}

func TestPurchaseRejectedForInactiveAsset(t *testing.T) {
	module := modelexchangeservice.NewInMemoryModule(nil)
	ctx := context.Background()

	setupMarket(t, module, 250)
	asset := registerTestAsset(t, module, "creator-1", httptransport.RegisterAssetRequest{
		Name:          "retired-model",
		DownloadPrice: 100,
	})
	if _, err := module.Handler.SetAssetActiveHandler(ctx, "creator-1", asset.Data.AssetID, httptransport.SetAssetActiveRequest{
		IsActive: false,
	}); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	module.Store.Deposit(entities.PaymentKindNative, "buyer-1", 500)

	_, err := module.Handler.PurchaseHandler(ctx, "buyer-1", asset.Data.AssetID, httptransport.PurchaseRequest{
		Kind: "download",
	})
	if !errors.Is(err, exchangeerrors.ErrAssetInactive) {
		t.Fatalf("expected ErrAssetInactive, got %v", err)
	}
}

func TestSubscriptionRequiresDuration(t *testing.T) {
	module := modelexchangeservice.NewInMemoryModule(nil)
	ctx := context.Background()

	setupMarket(t, module, 250)
	asset := registerTestAsset(t, module, "creator-1", httptransport.RegisterAssetRequest{
		Name:           "sub-model",
		InferencePrice: 10,
	})

	_, err := module.Handler.PurchaseHandler(ctx, "buyer-1", asset.Data.AssetID, httptransport.PurchaseRequest{
		Kind: "subscription",
	})
	if !errors.Is(err, exchangeerrors.ErrMissingDuration) {
		t.Fatalf("expected ErrMissingDuration, got %v", err)
	}
}

func TestSubscriptionExpiryIsDerivedAtReadTime(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	module, store := newClockedModule(clock)
	ctx := context.Background()

	setupMarket(t, module, 250)
	asset := registerTestAsset(t, module, "creator-1", httptransport.RegisterAssetRequest{
		Name:           "sub-model",
		InferencePrice: 10,
	})
	store.Deposit(entities.PaymentKindNative, "buyer-1", 300)

	resp, err := module.Handler.PurchaseHandler(ctx, "buyer-1", asset.Data.AssetID, httptransport.PurchaseRequest{
		Kind:         "subscription",
		DurationDays: 30,
	})
	if err != nil {
		t.Fatalf("subscription purchase failed: %v", err)
	}
	if resp.Price != 300 {
		t.Fatalf("subscription price = %d, want 300", resp.Price)
	}
	wantExpiry := start.Add(30 * 24 * time.Hour).Format(time.RFC3339)
	if resp.Data.ExpiresAt != wantExpiry {
		t.Fatalf("expires_at = %s, want %s", resp.Data.ExpiresAt, wantExpiry)
	}

	clock.now = start.Add(30*24*time.Hour - time.Second)
	access, err := module.Handler.CheckAccessHandler(ctx, "buyer-1", asset.Data.AssetID)
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if !access.HasAccess {
		t.Fatalf("subscription must be live one second before the deadline")
	}

	clock.now = start.Add(30 * 24 * time.Hour)
	access, err = module.Handler.CheckAccessHandler(ctx, "buyer-1", asset.Data.AssetID)
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if access.HasAccess {
		t.Fatalf("subscription must be expired exactly at the deadline")
	}
	if access.Data == nil || !access.Data.IsActive {
		t.Fatalf("stored entitlement must stay active, expiry is derived: %+v", access.Data)
	}
}

func TestCheckAccessWithoutEntitlement(t *testing.T) {
	module := modelexchangeservice.NewInMemoryModule(nil)
	ctx := context.Background()

	setupMarket(t, module, 250)
	asset := registerTestAsset(t, module, "creator-1", httptransport.RegisterAssetRequest{Name: "lonely-model"})

	access, err := module.Handler.CheckAccessHandler(ctx, "stranger-1", asset.Data.AssetID)
	if err != nil {
		t.Fatalf("check access must not error for missing entitlements: %v", err)
	}
	if access.HasAccess || access.Data != nil {
		t.Fatalf("unexpected access: %+v", access)
	}
}

func TestListEntitlementsByUser(t *testing.T) {
	module := modelexchangeservice.NewInMemoryModule(nil)
	ctx := context.Background()

	setupMarket(t, module, 250)
	first := registerTestAsset(t, module, "creator-1", httptransport.RegisterAssetRequest{Name: "model-a", DownloadPrice: 10})
	second := registerTestAsset(t, module, "creator-1", httptransport.RegisterAssetRequest{Name: "model-b", InferencePrice: 5})
	module.Store.Deposit(entities.PaymentKindNative, "buyer-1", 100)

	if _, err := module.Handler.PurchaseHandler(ctx, "buyer-1", first.Data.AssetID, httptransport.PurchaseRequest{Kind: "download"}); err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}
	if _, err := module.Handler.PurchaseHandler(ctx, "buyer-1", second.Data.AssetID, httptransport.PurchaseRequest{Kind: "inference"}); err != nil {
		t.Fatalf("second purchase failed: %v", err)
	}

	list, err := module.Handler.ListEntitlementsHandler(ctx, "buyer-1")
	if err != nil {
		t.Fatalf("list entitlements failed: %v", err)
	}
	if len(list.Data) != 2 {
		t.Fatalf("entitlement count = %d, want 2", len(list.Data))
	}
	if list.Data[0].AssetID != first.Data.AssetID || list.Data[1].AssetID != second.Data.AssetID {
		t.Fatalf("entitlements out of order: %+v", list.Data)
	}
}
