package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"modelmart/contexts/marketplace-core/model-exchange-service/adapters/memory"
	domainerrors "modelmart/contexts/marketplace-core/model-exchange-service/domain/errors"
	"modelmart/contexts/marketplace-core/model-exchange-service/domain/entities"
)

func TestFeeSplitConservesEveryUnit(t *testing.T) {
	cases := []struct {
		price       uint64
		feeBps      uint32
		wantFee     uint64
		wantCreator uint64
	}{
		{price: 1000, feeBps: 250, wantFee: 25, wantCreator: 975},
		{price: 1000, feeBps: 0, wantFee: 0, wantCreator: 1000},
		{price: 1000, feeBps: 10000, wantFee: 1000, wantCreator: 0},
		{price: 0, feeBps: 250, wantFee: 0, wantCreator: 0},
		{price: 1, feeBps: 9999, wantFee: 0, wantCreator: 1},
		{price: 39, feeBps: 250, wantFee: 0, wantCreator: 39},
		{price: 41, feeBps: 250, wantFee: 1, wantCreator: 40},
	}
	for _, tc := range cases {
		creator, fee, err := feeSplit(tc.price, tc.feeBps)
		if err != nil {
			t.Fatalf("feeSplit(%d, %d) failed: %v", tc.price, tc.feeBps, err)
		}
		if fee != tc.wantFee || creator != tc.wantCreator {
			t.Fatalf("feeSplit(%d, %d) = creator %d fee %d, want creator %d fee %d",
				tc.price, tc.feeBps, creator, fee, tc.wantCreator, tc.wantFee)
		}
		if creator+fee != tc.price {
			t.Fatalf("feeSplit(%d, %d) lost units: creator %d + fee %d", tc.price, tc.feeBps, creator, fee)
		}
	}
}

func TestFeeSplitRejectsFeeAboveFullPrice(t *testing.T) {
	if _, _, err := feeSplit(1000, entities.MaxFeeBps+1); !errors.Is(err, domainerrors.ErrFeeBpsTooHigh) {
		t.Fatalf("expected ErrFeeBpsTooHigh, got %v", err)
	}
}

func TestFeeSplitRejectsOverflowingProduct(t *testing.T) {
	if _, _, err := feeSplit(math.MaxUint64, 2); !errors.Is(err, domainerrors.ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
}

func TestResolvePriceByKind(t *testing.T) {
	asset := entities.Asset{InferencePrice: 10, DownloadPrice: 500}

	price, err := resolvePrice(asset, entities.EntitlementKindInference, 0)
	if err != nil || price != 10 {
		t.Fatalf("inference price = %d, %v", price, err)
	}
	price, err = resolvePrice(asset, entities.EntitlementKindDownload, 0)
	if err != nil || price != 500 {
		t.Fatalf("download price = %d, %v", price, err)
	}
	price, err = resolvePrice(asset, entities.EntitlementKindSubscription, 30)
	if err != nil || price != 300 {
		t.Fatalf("subscription price = %d, %v", price, err)
	}
	if _, err = resolvePrice(asset, entities.EntitlementKindSubscription, 0); !errors.Is(err, domainerrors.ErrMissingDuration) {
		t.Fatalf("expected ErrMissingDuration, got %v", err)
	}

	huge := entities.Asset{InferencePrice: math.MaxUint64 / 2}
	if _, err = resolvePrice(huge, entities.EntitlementKindSubscription, 3); !errors.Is(err, domainerrors.ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
}

// scriptedLedger delegates to the in-memory ledger but fails the nth call.
type scriptedLedger struct {
	store    *memory.Store
	calls    int
	failCall int
}

func (l *scriptedLedger) Transfer(
	ctx context.Context,
	kind entities.PaymentKind,
	from string,
	to string,
	amount uint64,
) error {
	l.calls++
	if l.calls == l.failCall {
		return fmt.Errorf("%w: scripted failure", domainerrors.ErrLedgerRejected)
	}
	return l.store.Transfer(ctx, kind, from, to, amount)
}

func newPurchaseFixture(t *testing.T, ledger *scriptedLedger) (Service, *memory.Store, entities.Asset) {
	t.Helper()

	store := memory.NewStore()
	if ledger != nil {
		ledger.store = store
	}
	service := Service{
		Marketplace:  store,
		Assets:       store,
		Entitlements: store,
		Usage:        store,
		Ledger:       store,
		Outbox:       store,
		Clock:        store,
		IDGen:        store,
	}
	if ledger != nil {
		service.Ledger = ledger
	}

	ctx := context.Background()
	if _, err := service.InitializeMarketplace(ctx, "authority-1", "treasury-1", 250); err != nil {
		t.Fatalf("initialize marketplace: %v", err)
	}
	asset, err := service.RegisterAsset(ctx, "creator-1", RegisterAssetInput{
		Name:           "llama-small",
		ContentHash:    "abc123",
		StorageURI:     "ipfs://model",
		SizeBytes:      1024,
		InferencePrice: 10,
		DownloadPrice:  1000,
		PaymentKind:    entities.PaymentKindNative,
	})
	if err != nil {
		t.Fatalf("register asset: %v", err)
	}
	return service, store, asset
}

func TestPurchaseCompensationOnTreasuryLegFailure(t *testing.T) {
	ledger := &scriptedLedger{failCall: 2}
	service, store, asset := newPurchaseFixture(t, ledger)
	ctx := context.Background()

	store.Deposit(entities.PaymentKindNative, "buyer-1", 1000)

	_, err := service.Purchase(ctx, "buyer-1", asset.AssetID, entities.EntitlementKindDownload, 0)
	if !errors.Is(err, domainerrors.ErrLedgerRejected) {
		t.Fatalf("expected ErrLedgerRejected, got %v", err)
	}

	if got := store.BalanceOf(entities.PaymentKindNative, "buyer-1"); got != 1000 {
		t.Fatalf("buyer balance after compensation = %d, want 1000", got)
	}
	if got := store.BalanceOf(entities.PaymentKindNative, "creator-1"); got != 0 {
		t.Fatalf("creator balance after compensation = %d, want 0", got)
	}

	status, err := service.CheckAccess(ctx, "buyer-1", asset.AssetID)
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if status.HasAccess {
		t.Fatalf("reservation must be released after failed settlement")
	}

	res, err := service.Purchase(ctx, "buyer-1", asset.AssetID, entities.EntitlementKindDownload, 0)
	if err != nil {
		t.Fatalf("retry purchase after compensation: %v", err)
	}
	if res.CreatorAmount != 975 || res.ProtocolFee != 25 {
		t.Fatalf("retry split = creator %d fee %d", res.CreatorAmount, res.ProtocolFee)
	}
}

func TestPurchaseZeroPriceSkipsSettlement(t *testing.T) {
	ledger := &scriptedLedger{failCall: 1}
	service, store, _ := newPurchaseFixture(t, ledger)
	ctx := context.Background()

	free, err := service.RegisterAsset(ctx, "creator-1", RegisterAssetInput{
		Name:        "free-model",
		ContentHash: "free123",
		StorageURI:  "ipfs://free",
		SizeBytes:   64,
		PaymentKind: entities.PaymentKindNative,
	})
	if err != nil {
		t.Fatalf("register free asset: %v", err)
	}

	res, err := service.Purchase(ctx, "buyer-1", free.AssetID, entities.EntitlementKindInference, 0)
	if err != nil {
		t.Fatalf("zero price purchase must not touch the ledger: %v", err)
	}
	if res.Price != 0 || res.ProtocolFee != 0 || res.CreatorAmount != 0 {
		t.Fatalf("zero price split = %+v", res)
	}
	if ledger.calls != 0 {
		t.Fatalf("ledger called %d times for a free purchase", ledger.calls)
	}
	if got := store.BalanceOf(entities.PaymentKindNative, "buyer-1"); got != 0 {
		t.Fatalf("buyer balance = %d", got)
	}
}

func TestPurchaseReleasesReservationWhenFirstLegFails(t *testing.T) {
	ledger := &scriptedLedger{failCall: 1}
	service, _, asset := newPurchaseFixture(t, ledger)
	ctx := context.Background()

	_, err := service.Purchase(ctx, "buyer-2", asset.AssetID, entities.EntitlementKindInference, 0)
	if !errors.Is(err, domainerrors.ErrLedgerRejected) {
		t.Fatalf("expected ErrLedgerRejected, got %v", err)
	}
	status, err := service.CheckAccess(ctx, "buyer-2", asset.AssetID)
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if status.HasAccess {
		t.Fatalf("reservation must be released when the creator leg fails")
	}
}
