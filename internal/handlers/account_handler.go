package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ianpurifying/SE1project-IRNVault/internal/middleware"
	"github.com/ianpurifying/SE1project-IRNVault/internal/services"
)

type AccountHandler struct {
	ledger *services.LedgerService
}

func NewAccountHandler(ledger *services.LedgerService) *AccountHandler {
	return &AccountHandler{ledger: ledger}
}

// Balance returns the authenticated account's current balance snapshot.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := middleware.AccountNumber(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), accountNumber)
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

// Transactions returns the account's ledger history. Supports ?limit= and
// ?sort=newest|oldest|amount.
func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := middleware.AccountNumber(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	sortKey := services.SortNewestFirst
	if raw := r.URL.Query().Get("sort"); raw != "" {
		sortKey = services.TransactionSortKey(raw)
	}

	history, err := h.ledger.GetTransactionHistory(r.Context(), accountNumber, limit, sortKey)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"account_number": accountNumber,
		"transactions":   history,
	})
}

// Reconcile verifies the balance-vs-ledger invariant for the
// authenticated account.
func (h *AccountHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := middleware.AccountNumber(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	report, err := h.ledger.ReconcileAccount(r.Context(), accountNumber)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
