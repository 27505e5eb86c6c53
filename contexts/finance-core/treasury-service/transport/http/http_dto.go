package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type DepositRequest struct {
	Kind   string `json:"kind"`
	Amount uint64 `json:"amount"`
}

type DepositResponse struct {
	Status  string     `json:"status"`
	Balance BalanceDTO `json:"balance"`
}

type TransferRequest struct {
	Kind   string `json:"kind"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type TransferResponse struct {
	Status string `json:"status"`
}

type BalanceDTO struct {
	AccountID string `json:"account_id"`
	Kind      string `json:"kind"`
	Amount    uint64 `json:"amount"`
}

type BalanceResponse struct {
	Status string     `json:"status"`
	Data   BalanceDTO `json:"data"`
}
