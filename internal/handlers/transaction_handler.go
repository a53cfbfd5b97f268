package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ianpurifying/SE1project-IRNVault/internal/middleware"
	"github.com/ianpurifying/SE1project-IRNVault/internal/services"
)

type TransactionHandler struct {
	engine    *services.TransactionService
	validator *services.ValidationHelper
}

func NewTransactionHandler(engine *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		engine:    engine,
		validator: services.NewValidationHelper(),
	}
}

// Deposit credits the authenticated account.
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := middleware.AccountNumber(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	balance, err := h.engine.Deposit(r.Context(), accountNumber, req.Amount)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"account_number": accountNumber,
		"balance":        balance,
	})
}

// Withdraw debits the authenticated account.
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := middleware.AccountNumber(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	balance, err := h.engine.Withdraw(r.Context(), accountNumber, req.Amount)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"account_number": accountNumber,
		"balance":        balance,
	})
}

// Transfer moves money from the authenticated account to a recipient.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := middleware.AccountNumber(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		ToAccount string          `json:"to_account" validate:"required,numeric,len=10"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	if err := h.engine.Transfer(r.Context(), accountNumber, req.ToAccount, req.Amount); err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"from_account": accountNumber,
		"to_account":   req.ToAccount,
		"amount":       req.Amount,
		"message":      "Transfer completed",
	})
}
