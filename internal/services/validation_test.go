package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	type loginRequest struct {
		AccountNumber string `validate:"required,numeric,len=10"`
		PIN           string `validate:"required,numeric,len=4"`
	}

	t.Run("valid struct", func(t *testing.T) {
		assert.NoError(t, vh.ValidateStruct(loginRequest{AccountNumber: "1234567890", PIN: "1234"}))
	})

	t.Run("short account number", func(t *testing.T) {
		assert.Error(t, vh.ValidateStruct(loginRequest{AccountNumber: "123", PIN: "1234"}))
	})

	t.Run("non-numeric pin", func(t *testing.T) {
		assert.Error(t, vh.ValidateStruct(loginRequest{AccountNumber: "1234567890", PIN: "abcd"}))
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "something broke", http.StatusConflict, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "something broke", resp.Error)
		assert.Empty(t, resp.Details)
	})

	t.Run("validation details included", func(t *testing.T) {
		vh := NewValidationHelper()
		type req struct {
			PIN string `validate:"required,len=4"`
		}
		err := vh.ValidateStruct(req{})

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Details, "PIN")
	})
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ErrInvalidAmount, http.StatusBadRequest},
		{ErrSameAccount, http.StatusBadRequest},
		{ErrInvalidLoanTerms, http.StatusBadRequest},
		{ErrAccountNotFound, http.StatusNotFound},
		{ErrRecipientNotFound, http.StatusNotFound},
		{ErrLoanNotFound, http.StatusNotFound},
		{ErrApplicationNotFound, http.StatusNotFound},
		{ErrInsufficientFunds, http.StatusConflict},
		{ErrInsufficientTreasuryFunds, http.StatusConflict},
		{ErrDuplicateObligation, http.StatusConflict},
		{ErrLoanNotActive, http.StatusConflict},
		{ErrApplicationNotPending, http.StatusConflict},
		{ErrAccountNotApproved, http.StatusForbidden},
		{ErrRecipientNotApproved, http.StatusForbidden},
		{ErrAccountPending, http.StatusForbidden},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{persistenceErr(assert.AnError), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, StatusForError(tc.err), "status for %v", tc.err)
	}
}
