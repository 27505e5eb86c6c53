package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	treasuryservice "modelmart/contexts/finance-core/treasury-service"
	modelexchangeservice "modelmart/contexts/marketplace-core/model-exchange-service"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "modelmart/internal/platform/httpserver/docs"
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	exchange modelexchangeservice.Module
	treasury treasuryservice.Module
}

func New(
	exchange modelexchangeservice.Module,
	treasury treasuryservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		exchange: exchange,
		treasury: treasury,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/marketplace/v1/initialize", s.handleMarketplaceInitialize)
	s.mux.HandleFunc("GET /api/marketplace/v1/config", s.handleMarketplaceConfig)

	s.mux.HandleFunc("POST /api/marketplace/v1/assets", s.handleRegisterAsset)
	s.mux.HandleFunc("GET /api/marketplace/v1/assets", s.handleListAssets)
	s.mux.HandleFunc("GET /api/marketplace/v1/assets/{asset_id}", s.handleGetAsset)
	s.mux.HandleFunc("GET /api/marketplace/v1/creators/{creator_id}/assets", s.handleListCreatorAssets)
	s.mux.HandleFunc("POST /api/marketplace/v1/assets/{asset_id}/active", s.handleSetAssetActive)
	s.mux.HandleFunc("POST /api/marketplace/v1/assets/{asset_id}/pricing", s.handleSetAssetPricing)

	s.mux.HandleFunc("POST /api/marketplace/v1/assets/{asset_id}/purchase", s.handlePurchase)
	s.mux.HandleFunc("GET /api/marketplace/v1/access/{user_id}/{asset_id}", s.handleCheckAccess)
	s.mux.HandleFunc("GET /api/marketplace/v1/users/{user_id}/entitlements", s.handleListEntitlements)

	s.mux.HandleFunc("POST /api/marketplace/v1/assets/{asset_id}/usage/inference", s.handleRecordInference)
	s.mux.HandleFunc("POST /api/marketplace/v1/assets/{asset_id}/usage/download", s.handleRecordDownload)
	s.mux.HandleFunc("GET /api/marketplace/v1/users/{user_id}/usage", s.handleListUsage)

	s.mux.HandleFunc("POST /api/treasury/v1/accounts/{account_id}/deposit", s.handleTreasuryDeposit)
	s.mux.HandleFunc("GET /api/treasury/v1/accounts/{account_id}/balance", s.handleTreasuryBalance)
	s.mux.HandleFunc("POST /api/treasury/v1/transfers", s.handleTreasuryTransfer)
}

func (s *Server) decodeJSON(
	w http.ResponseWriter,
	r *http.Request,
	target any,
	writeError func(http.ResponseWriter, int, string, string),
) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
