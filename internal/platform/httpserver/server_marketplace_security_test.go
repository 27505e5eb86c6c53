package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	treasuryservice "modelmart/contexts/finance-core/treasury-service"
	modelexchangeservice "modelmart/contexts/marketplace-core/model-exchange-service"
	"modelmart/contexts/marketplace-core/model-exchange-service/domain/entities"
)

func newTestServer() *Server {
	return New(
		modelexchangeservice.NewInMemoryModule(slog.Default()),
		treasuryservice.NewInMemoryModule(slog.Default()),
		slog.Default(),
		":0",
	)
}

func doJSON(server *Server, method string, path string, body string, authorized bool, userID string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer token")
		req.Header.Set("X-Request-Id", "req-test-1")
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func mustInitializeMarket(t *testing.T, server *Server) {
	t.Helper()
	rr := doJSON(server, http.MethodPost, "/api/marketplace/v1/initialize", `{"treasury":"treasury-1","fee_bps":250}`, true, "authority-1")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 initialize, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMarketplaceInitializeRequiresAuthorization(t *testing.T) {
	server := newTestServer()

	rr := doJSON(server, http.MethodPost, "/api/marketplace/v1/initialize", `{"treasury":"treasury-1","fee_bps":250}`, false, "authority-1")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMarketplaceMutationsRequireUserIdentity(t *testing.T) {
	server := newTestServer()
	mustInitializeMarket(t, server)

	rr := doJSON(server, http.MethodPost, "/api/marketplace/v1/assets", `{"name":"model","payment_kind":"native"}`, true, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without X-User-Id, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMarketplaceSecondInitializeConflicts(t *testing.T) {
	server := newTestServer()
	mustInitializeMarket(t, server)

	rr := doJSON(server, http.MethodPost, "/api/marketplace/v1/initialize", `{"treasury":"treasury-2","fee_bps":100}`, true, "authority-2")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second initialize, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMarketplaceInitializeRejectsExcessiveFee(t *testing.T) {
	server := newTestServer()

	rr := doJSON(server, http.MethodPost, "/api/marketplace/v1/initialize", `{"treasury":"treasury-1","fee_bps":10001}`, true, "authority-1")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for fee over 10000 bps, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAssetManagementRejectsNonCreator(t *testing.T) {
	server := newTestServer()
	mustInitializeMarket(t, server)

	createRR := doJSON(server, http.MethodPost, "/api/marketplace/v1/assets",
		`{"name":"guarded-model","content_hash":"h1","storage_uri":"ipfs://m","payment_kind":"native","download_price":100}`,
		true, "creator-1")
	if createRR.Code != http.StatusCreated {
		t.Fatalf("expected 201 register, got %d body=%s", createRR.Code, createRR.Body.String())
	}
	var created struct {
		Data struct {
			AssetID uint64 `json:"asset_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(createRR.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	rr := doJSON(server, http.MethodPost,
		fmt.Sprintf("/api/marketplace/v1/assets/%d/active", created.Data.AssetID),
		`{"is_active":false}`, true, "intruder-1")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-creator, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestPurchaseFlowOverHTTP(t *testing.T) {
	server := newTestServer()
	mustInitializeMarket(t, server)

	createRR := doJSON(server, http.MethodPost, "/api/marketplace/v1/assets",
		`{"name":"paid-model","content_hash":"h1","storage_uri":"ipfs://m","payment_kind":"native","download_price":1000}`,
		true, "creator-1")
	if createRR.Code != http.StatusCreated {
		t.Fatalf("expected 201 register, got %d body=%s", createRR.Code, createRR.Body.String())
	}

	server.exchange.Store.Deposit(entities.PaymentKindNative, "buyer-1", 1000)

	purchaseRR := doJSON(server, http.MethodPost, "/api/marketplace/v1/assets/0/purchase", `{"kind":"download"}`, true, "buyer-1")
	if purchaseRR.Code != http.StatusCreated {
		t.Fatalf("expected 201 purchase, got %d body=%s", purchaseRR.Code, purchaseRR.Body.String())
	}
	var purchase struct {
		ProtocolFee   uint64 `json:"protocol_fee"`
		CreatorAmount uint64 `json:"creator_amount"`
	}
	if err := json.Unmarshal(purchaseRR.Body.Bytes(), &purchase); err != nil {
		t.Fatalf("decode purchase response: %v", err)
	}
	if purchase.ProtocolFee != 25 || purchase.CreatorAmount != 975 {
		t.Fatalf("purchase split = fee %d creator %d", purchase.ProtocolFee, purchase.CreatorAmount)
	}

	dupRR := doJSON(server, http.MethodPost, "/api/marketplace/v1/assets/0/purchase", `{"kind":"download"}`, true, "buyer-1")
	if dupRR.Code != http.StatusConflict {
		t.Fatalf("expected 409 duplicate purchase, got %d body=%s", dupRR.Code, dupRR.Body.String())
	}

	accessRR := doJSON(server, http.MethodGet, "/api/marketplace/v1/access/buyer-1/0", "", false, "")
	if accessRR.Code != http.StatusOK {
		t.Fatalf("expected 200 access check, got %d body=%s", accessRR.Code, accessRR.Body.String())
	}
}

func TestPurchaseWithoutFundsReturnsPaymentRequired(t *testing.T) {
	server := newTestServer()
	mustInitializeMarket(t, server)

	createRR := doJSON(server, http.MethodPost, "/api/marketplace/v1/assets",
		`{"name":"pricey-model","content_hash":"h1","storage_uri":"ipfs://m","payment_kind":"native","download_price":1000}`,
		true, "creator-1")
	if createRR.Code != http.StatusCreated {
		t.Fatalf("expected 201 register, got %d body=%s", createRR.Code, createRR.Body.String())
	}

	rr := doJSON(server, http.MethodPost, "/api/marketplace/v1/assets/0/purchase", `{"kind":"download"}`, true, "broke-buyer")
	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 without funds, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRecordInferenceReplayConflictsOverHTTP(t *testing.T) {
	server := newTestServer()
	mustInitializeMarket(t, server)

	createRR := doJSON(server, http.MethodPost, "/api/marketplace/v1/assets",
		`{"name":"usage-model","content_hash":"h1","storage_uri":"ipfs://m","payment_kind":"native","inference_price":10}`,
		true, "creator-1")
	if createRR.Code != http.StatusCreated {
		t.Fatalf("expected 201 register, got %d body=%s", createRR.Code, createRR.Body.String())
	}
	server.exchange.Store.Deposit(entities.PaymentKindNative, "buyer-1", 100)
	purchaseRR := doJSON(server, http.MethodPost, "/api/marketplace/v1/assets/0/purchase", `{"kind":"inference"}`, true, "buyer-1")
	if purchaseRR.Code != http.StatusCreated {
		t.Fatalf("expected 201 purchase, got %d body=%s", purchaseRR.Code, purchaseRR.Body.String())
	}

	first := doJSON(server, http.MethodPost, "/api/marketplace/v1/assets/0/usage/inference", `{"usage_hash":"hash-1"}`, true, "buyer-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 usage, got %d body=%s", first.Code, first.Body.String())
	}
	replay := doJSON(server, http.MethodPost, "/api/marketplace/v1/assets/0/usage/inference", `{"usage_hash":"hash-1"}`, true, "buyer-1")
	if replay.Code != http.StatusConflict {
		t.Fatalf("expected 409 replayed usage, got %d body=%s", replay.Code, replay.Body.String())
	}
}

func TestInvalidAssetIDIsBadRequest(t *testing.T) {
	server := newTestServer()

	rr := doJSON(server, http.MethodGet, "/api/marketplace/v1/assets/not-a-number", "", false, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid asset id, got %d body=%s", rr.Code, rr.Body.String())
	}
}
