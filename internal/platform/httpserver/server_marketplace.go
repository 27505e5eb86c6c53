package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	exchangeerrors "modelmart/contexts/marketplace-core/model-exchange-service/domain/errors"
	exchangehttp "modelmart/contexts/marketplace-core/model-exchange-service/transport/http"
)

func writeMarketplaceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, exchangehttp.ErrorResponse{Code: code, Message: message})
}

func writeMarketplaceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exchangeerrors.ErrInvalidInput),
		errors.Is(err, exchangeerrors.ErrFieldTooLong),
		errors.Is(err, exchangeerrors.ErrMissingDuration):
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, exchangeerrors.ErrMarketplaceAlreadyInitialized):
		writeMarketplaceError(w, http.StatusConflict, "marketplace_already_initialized", err.Error())
	case errors.Is(err, exchangeerrors.ErrMarketplaceNotInitialized):
		writeMarketplaceError(w, http.StatusConflict, "marketplace_not_initialized", err.Error())
	case errors.Is(err, exchangeerrors.ErrFeeBpsTooHigh),
		errors.Is(err, exchangeerrors.ErrAmountOverflow):
		writeMarketplaceError(w, http.StatusUnprocessableEntity, "unprocessable_amount", err.Error())
	case errors.Is(err, exchangeerrors.ErrAssetNotFound):
		writeMarketplaceError(w, http.StatusNotFound, "asset_not_found", err.Error())
	case errors.Is(err, exchangeerrors.ErrEntitlementNotFound):
		writeMarketplaceError(w, http.StatusNotFound, "entitlement_not_found", err.Error())
	case errors.Is(err, exchangeerrors.ErrAssetInactive):
		writeMarketplaceError(w, http.StatusGone, "asset_inactive", err.Error())
	case errors.Is(err, exchangeerrors.ErrNotAssetCreator),
		errors.Is(err, exchangeerrors.ErrEntitlementInactive),
		errors.Is(err, exchangeerrors.ErrEntitlementExpired),
		errors.Is(err, exchangeerrors.ErrWrongEntitlementKind):
		writeMarketplaceError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, exchangeerrors.ErrDuplicateEntitlement):
		writeMarketplaceError(w, http.StatusConflict, "entitlement_exists", err.Error())
	case errors.Is(err, exchangeerrors.ErrDuplicateUsage):
		writeMarketplaceError(w, http.StatusConflict, "usage_already_recorded", err.Error())
	case errors.Is(err, exchangeerrors.ErrLedgerRejected):
		writeMarketplaceError(w, http.StatusPaymentRequired, "payment_failed", err.Error())
	default:
		writeMarketplaceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireMarketplaceAuthorization(w http.ResponseWriter, r *http.Request) bool {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		writeMarketplaceError(w, http.StatusUnauthorized, "unauthorized", "Authorization bearer token is required")
		return false
	}
	return true
}

func requireMarketplaceRequestID(w http.ResponseWriter, r *http.Request) bool {
	if strings.TrimSpace(r.Header.Get("X-Request-Id")) == "" {
		writeMarketplaceError(w, http.StatusBadRequest, "missing_request_id", "X-Request-Id header is required")
		return false
	}
	return true
}

func requireMarketplaceUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeMarketplaceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func parseAssetID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	assetID, err := strconv.ParseUint(r.PathValue("asset_id"), 10, 64)
	if err != nil {
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_asset_id", "asset_id must be an unsigned integer")
		return 0, false
	}
	return assetID, true
}

func (s *Server) handleMarketplaceInitialize(w http.ResponseWriter, r *http.Request) {
	if !requireMarketplaceAuthorization(w, r) || !requireMarketplaceRequestID(w, r) {
		return
	}
	callerID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	var req exchangehttp.InitializeMarketplaceRequest
	if !s.decodeJSON(w, r, &req, writeMarketplaceError) {
		return
	}
	resp, err := s.exchange.Handler.InitializeMarketplaceHandler(r.Context(), callerID, req)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleMarketplaceConfig(w http.ResponseWriter, r *http.Request) {
	resp, err := s.exchange.Handler.GetMarketplaceHandler(r.Context())
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	if !requireMarketplaceAuthorization(w, r) || !requireMarketplaceRequestID(w, r) {
		return
	}
	callerID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	var req exchangehttp.RegisterAssetRequest
	if !s.decodeJSON(w, r, &req, writeMarketplaceError) {
		return
	}
	resp, err := s.exchange.Handler.RegisterAssetHandler(r.Context(), callerID, req)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	activeOnly := strings.EqualFold(r.URL.Query().Get("active_only"), "true")
	resp, err := s.exchange.Handler.ListAssetsHandler(r.Context(), activeOnly)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	assetID, ok := parseAssetID(w, r)
	if !ok {
		return
	}
	resp, err := s.exchange.Handler.GetAssetHandler(r.Context(), assetID)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCreatorAssets(w http.ResponseWriter, r *http.Request) {
	resp, err := s.exchange.Handler.ListAssetsByCreatorHandler(r.Context(), r.PathValue("creator_id"))
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetAssetActive(w http.ResponseWriter, r *http.Request) {
	if !requireMarketplaceAuthorization(w, r) || !requireMarketplaceRequestID(w, r) {
		return
	}
	callerID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	assetID, ok := parseAssetID(w, r)
	if !ok {
		return
	}
	var req exchangehttp.SetAssetActiveRequest
	if !s.decodeJSON(w, r, &req, writeMarketplaceError) {
		return
	}
	resp, err := s.exchange.Handler.SetAssetActiveHandler(r.Context(), callerID, assetID, req)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetAssetPricing(w http.ResponseWriter, r *http.Request) {
	if !requireMarketplaceAuthorization(w, r) || !requireMarketplaceRequestID(w, r) {
		return
	}
	callerID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	assetID, ok := parseAssetID(w, r)
	if !ok {
		return
	}
	var req exchangehttp.SetAssetPricingRequest
	if !s.decodeJSON(w, r, &req, writeMarketplaceError) {
		return
	}
	resp, err := s.exchange.Handler.SetAssetPricingHandler(r.Context(), callerID, assetID, req)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	if !requireMarketplaceAuthorization(w, r) || !requireMarketplaceRequestID(w, r) {
		return
	}
	callerID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	assetID, ok := parseAssetID(w, r)
	if !ok {
		return
	}
	var req exchangehttp.PurchaseRequest
	if !s.decodeJSON(w, r, &req, writeMarketplaceError) {
		return
	}
	resp, err := s.exchange.Handler.PurchaseHandler(r.Context(), callerID, assetID, req)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	assetID, ok := parseAssetID(w, r)
	if !ok {
		return
	}
	resp, err := s.exchange.Handler.CheckAccessHandler(r.Context(), r.PathValue("user_id"), assetID)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListEntitlements(w http.ResponseWriter, r *http.Request) {
	resp, err := s.exchange.Handler.ListEntitlementsHandler(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordInference(w http.ResponseWriter, r *http.Request) {
	if !requireMarketplaceAuthorization(w, r) || !requireMarketplaceRequestID(w, r) {
		return
	}
	callerID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	assetID, ok := parseAssetID(w, r)
	if !ok {
		return
	}
	var req exchangehttp.RecordInferenceRequest
	if !s.decodeJSON(w, r, &req, writeMarketplaceError) {
		return
	}
	resp, err := s.exchange.Handler.RecordInferenceHandler(r.Context(), callerID, assetID, req)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRecordDownload(w http.ResponseWriter, r *http.Request) {
	if !requireMarketplaceAuthorization(w, r) || !requireMarketplaceRequestID(w, r) {
		return
	}
	callerID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	assetID, ok := parseAssetID(w, r)
	if !ok {
		return
	}
	resp, err := s.exchange.Handler.RecordDownloadHandler(r.Context(), callerID, assetID)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListUsage(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeMarketplaceError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := s.exchange.Handler.ListUsageHandler(r.Context(), r.PathValue("user_id"), limit)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
