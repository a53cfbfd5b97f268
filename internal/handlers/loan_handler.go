package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ianpurifying/SE1project-IRNVault/internal/middleware"
	"github.com/ianpurifying/SE1project-IRNVault/internal/services"
)

type LoanHandler struct {
	loans     *services.LoanService
	validator *services.ValidationHelper
}

func NewLoanHandler(loans *services.LoanService) *LoanHandler {
	return &LoanHandler{
		loans:     loans,
		validator: services.NewValidationHelper(),
	}
}

// Apply submits a loan application for the authenticated account.
func (h *LoanHandler) Apply(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := middleware.AccountNumber(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount           decimal.Decimal `json:"amount"`
		Purpose          string          `json:"purpose" validate:"required,max=200"`
		MonthlyIncome    decimal.Decimal `json:"monthly_income"`
		EmploymentStatus string          `json:"employment_status" validate:"required,max=50"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	applicationID, err := h.loans.ApplyForLoan(r.Context(), accountNumber, req.Amount, req.Purpose, req.MonthlyIncome, req.EmploymentStatus)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"application_id": applicationID,
		"status":         "pending",
		"message":        "Loan application submitted for review",
	})
}

// ActiveLoans lists the authenticated account's active loans.
func (h *LoanHandler) ActiveLoans(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := middleware.AccountNumber(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	loans, err := h.loans.GetActiveLoans(r.Context(), accountNumber)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"loans": loans})
}

// Applications lists the authenticated account's loan applications.
func (h *LoanHandler) Applications(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := middleware.AccountNumber(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	apps, err := h.loans.GetLoanApplications(r.Context(), accountNumber)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"applications": apps})
}

// MakePayment applies a payment to one of the account's active loans.
func (h *LoanHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := middleware.AccountNumber(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		PaymentType string          `json:"payment_type" validate:"omitempty,oneof=regular partial early"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	payment, err := h.loans.MakeLoanPayment(r.Context(), loanID, accountNumber, req.Amount, req.PaymentType)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payment)
}

// Payoff settles the loan's entire remaining balance.
func (h *LoanHandler) Payoff(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := middleware.AccountNumber(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}

	payment, err := h.loans.PayoffLoan(r.Context(), loanID, accountNumber)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payment)
}

// PaymentHistory lists the payment audit trail for one of the account's loans.
func (h *LoanHandler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := middleware.AccountNumber(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}

	payments, err := h.loans.GetLoanPaymentHistory(r.Context(), accountNumber, loanID)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"payments": payments})
}

func loanIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	loanID, err := strconv.ParseInt(chi.URLParam(r, "loanId"), 10, 64)
	if err != nil {
		services.SendErrorResponse(w, "Invalid loan id", http.StatusBadRequest, nil)
		return 0, false
	}
	return loanID, true
}
