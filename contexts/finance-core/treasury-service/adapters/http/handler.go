package httpadapter

import (
	"context"
	"log/slog"

	"modelmart/contexts/finance-core/treasury-service/application"
	"modelmart/contexts/finance-core/treasury-service/ports"
	httptransport "modelmart/contexts/finance-core/treasury-service/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) DepositHandler(
	ctx context.Context,
	accountID string,
	req httptransport.DepositRequest,
) (httptransport.DepositResponse, error) {
	balance, err := h.Service.Deposit(ctx, ports.Kind(req.Kind), accountID, req.Amount)
	if err != nil {
		return httptransport.DepositResponse{}, err
	}
	return httptransport.DepositResponse{
		Status: "success",
		Balance: httptransport.BalanceDTO{
			AccountID: accountID,
			Kind:      req.Kind,
			Amount:    balance,
		},
	}, nil
}

func (h Handler) TransferHandler(
	ctx context.Context,
	req httptransport.TransferRequest,
) (httptransport.TransferResponse, error) {
	err := h.Service.Transfer(ctx, ports.Kind(req.Kind), req.From, req.To, req.Amount)
	if err != nil {
		return httptransport.TransferResponse{}, err
	}
	return httptransport.TransferResponse{Status: "success"}, nil
}

func (h Handler) BalanceHandler(
	ctx context.Context,
	accountID string,
	kind string,
) (httptransport.BalanceResponse, error) {
	balance, err := h.Service.Balance(ctx, ports.Kind(kind), accountID)
	if err != nil {
		return httptransport.BalanceResponse{}, err
	}
	return httptransport.BalanceResponse{
		Status: "success",
		Data: httptransport.BalanceDTO{
			AccountID: balance.AccountID,
			Kind:      string(balance.Kind),
			Amount:    balance.Amount,
		},
	}, nil
}
