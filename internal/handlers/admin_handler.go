package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ianpurifying/SE1project-IRNVault/internal/services"
)

// AdminHandler exposes the administrative surface: account approval,
// loan review and portfolio monitoring. Routes using it sit behind the
// AdminOnly middleware.
type AdminHandler struct {
	ledger    *services.LedgerService
	loans     *services.LoanService
	validator *services.ValidationHelper
}

func NewAdminHandler(ledger *services.LedgerService, loans *services.LoanService) *AdminHandler {
	return &AdminHandler{
		ledger:    ledger,
		loans:     loans,
		validator: services.NewValidationHelper(),
	}
}

// Accounts lists all customer accounts. Supports ?sort=created|name|balance.
func (h *AdminHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	sortKey := services.AccountsByCreated
	if raw := r.URL.Query().Get("sort"); raw != "" {
		sortKey = services.AccountSortKey(raw)
	}

	accounts, err := h.ledger.ListAccounts(r.Context(), sortKey)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"accounts": accounts})
}

// PendingAccounts lists accounts awaiting an approval decision.
func (h *AdminHandler) PendingAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.ledger.PendingAccounts(r.Context())
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"accounts": accounts})
}

// ApproveAccount approves a pending account.
func (h *AdminHandler) ApproveAccount(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")
	if err := h.ledger.ApproveAccount(r.Context(), accountNumber); err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Account approved"})
}

// DeclineAccount declines a pending account with a recorded reason.
func (h *AdminHandler) DeclineAccount(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")

	var req struct {
		Reason string `json:"reason" validate:"required,max=500"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	if err := h.ledger.DeclineAccount(r.Context(), accountNumber, req.Reason); err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Account declined"})
}

// PendingLoans lists applications awaiting review, each with its estimated
// debt-to-income percentage as a risk signal.
func (h *AdminHandler) PendingLoans(w http.ResponseWriter, r *http.Request) {
	apps, err := h.loans.PendingApplications(r.Context())
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	type reviewItem struct {
		Application  any             `json:"application"`
		EstimatedDTI decimal.Decimal `json:"estimated_dti_percent"`
	}
	items := make([]reviewItem, 0, len(apps))
	for _, app := range apps {
		items = append(items, reviewItem{
			Application:  app,
			EstimatedDTI: services.EstimateDTI(app.Amount, app.MonthlyIncome),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"applications": items})
}

// ApproveLoan approves an application with the supplied rate and term,
// creating and disbursing the loan.
func (h *AdminHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	applicationID, ok := idParam(w, r, "applicationId")
	if !ok {
		return
	}

	var req struct {
		InterestRate decimal.Decimal `json:"interest_rate"`
		TermMonths   int             `json:"term_months" validate:"required,min=1"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	loan, err := h.loans.ApproveLoan(r.Context(), applicationID, req.InterestRate, req.TermMonths)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(loan)
}

// RejectLoan rejects a pending application with a reason.
func (h *AdminHandler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	applicationID, ok := idParam(w, r, "applicationId")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" validate:"required,max=500"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	if err := h.loans.RejectLoan(r.Context(), applicationID, req.Reason); err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Application rejected"})
}

// ActiveLoans lists the whole active loan portfolio.
func (h *AdminHandler) ActiveLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loans.ActiveLoanPortfolio(r.Context())
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"loans": loans})
}

// MarkDefaulted marks an active loan as defaulted. A manual,
// administrative transition only.
func (h *AdminHandler) MarkDefaulted(w http.ResponseWriter, r *http.Request) {
	loanID, ok := idParam(w, r, "loanId")
	if !ok {
		return
	}

	if err := h.loans.MarkLoanDefaulted(r.Context(), loanID); err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Loan marked defaulted"})
}

// ReconcileAccount runs the reconciliation check for any account.
func (h *AdminHandler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")

	report, err := h.ledger.ReconcileAccount(r.Context(), accountNumber)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		services.SendErrorResponse(w, "Invalid "+name, http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}
