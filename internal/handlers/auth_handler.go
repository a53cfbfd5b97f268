package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/ianpurifying/SE1project-IRNVault/internal/services"
)

type AuthHandler struct {
	service   *services.AuthService
	validator *services.ValidationHelper
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// Register creates a new pending account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required,min=2,max=100"`
		PIN  string `json:"pin" validate:"required,numeric,len=4"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	account, err := h.service.Register(r.Context(), req.Name, req.PIN)
	if err != nil {
		log.Printf("[AUTH] Registration failed: %v", err)
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"account_number": account.AccountNumber,
		"status":         account.ApprovalStatus,
		"message":        "Account created and awaiting approval",
	})
}

// Login authenticates an account number and PIN and issues a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountNumber string `json:"account_number" validate:"required,numeric,len=10"`
		PIN           string `json:"pin" validate:"required,numeric,len=4"`
	}
	if !decodeJSON(w, r, &req, h.validator) {
		return
	}

	token, account, err := h.service.Login(r.Context(), req.AccountNumber, req.PIN)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"token":   token,
		"account": account,
	})
}

// Logout revokes the presented session token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if after, found := strings.CutPrefix(token, "Bearer "); found {
		if err := h.service.Logout(r.Context(), after); err != nil {
			log.Printf("[AUTH] Logout revocation failed: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// decodeJSON reads a single JSON object request body into dst, enforcing
// the shared size cap, strict field checking and struct validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, vh *services.ValidationHelper) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	if err := vh.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}
