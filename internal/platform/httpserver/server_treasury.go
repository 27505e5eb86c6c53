package httpserver

import (
	"errors"
	"net/http"
	"strings"

	treasuryerrors "modelmart/contexts/finance-core/treasury-service/domain/errors"
	treasuryhttp "modelmart/contexts/finance-core/treasury-service/transport/http"
)

func writeTreasuryError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, treasuryhttp.ErrorResponse{Code: code, Message: message})
}

func writeTreasuryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, treasuryerrors.ErrInvalidAccount),
		errors.Is(err, treasuryerrors.ErrInvalidKind),
		errors.Is(err, treasuryerrors.ErrInvalidAmount),
		errors.Is(err, treasuryerrors.ErrSameAccount):
		writeTreasuryError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, treasuryerrors.ErrInsufficientFunds):
		writeTreasuryError(w, http.StatusPaymentRequired, "insufficient_funds", err.Error())
	default:
		writeTreasuryError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireTreasuryAuthorization(w http.ResponseWriter, r *http.Request) bool {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		writeTreasuryError(w, http.StatusUnauthorized, "unauthorized", "Authorization bearer token is required")
		return false
	}
	return true
}

func (s *Server) handleTreasuryDeposit(w http.ResponseWriter, r *http.Request) {
	if !requireTreasuryAuthorization(w, r) {
		return
	}
	var req treasuryhttp.DepositRequest
	if !s.decodeJSON(w, r, &req, writeTreasuryError) {
		return
	}
	resp, err := s.treasury.Handler.DepositHandler(r.Context(), r.PathValue("account_id"), req)
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTreasuryBalance(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "native"
	}
	resp, err := s.treasury.Handler.BalanceHandler(r.Context(), r.PathValue("account_id"), kind)
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTreasuryTransfer(w http.ResponseWriter, r *http.Request) {
	if !requireTreasuryAuthorization(w, r) {
		return
	}
	var req treasuryhttp.TransferRequest
	if !s.decodeJSON(w, r, &req, writeTreasuryError) {
		return
	}
	resp, err := s.treasury.Handler.TransferHandler(r.Context(), req)
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
