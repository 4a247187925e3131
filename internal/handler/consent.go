package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/AleksYogi/proptech-ai/internal/model"
	"github.com/AleksYogi/proptech-ai/internal/store"
)

type consentLogged struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
	Warning string `json:"warning,omitempty"`
}

// LogConsent handles POST /api/consent-log.
func (h *Handler) LogConsent(w http.ResponseWriter, r *http.Request) {
	var payload model.ConsentLogRequest
	if !h.decode(w, r, &payload) || !h.valid(w, r, payload) {
		return
	}

	// Validation guarantees RFC 3339.
	ts, _ := time.Parse(time.RFC3339, payload.Timestamp)
	entry := &model.ConsentLogEntry{
		Timestamp:     ts,
		IP:            clientIP(r, payload.IP),
		UserAgent:     userAgent(r, payload.UserAgent),
		FormType:      payload.FormType,
		Phone:         payload.Phone,
		Consents:      *payload.Consents,
		PolicyVersion: payload.PolicyVersion,
	}
	if payload.Email != "" {
		email := payload.Email
		entry.Email = &email
	}

	if err := h.store.Insert(r.Context(), entry); err != nil {
		h.log.Error("failed to save consent log", zap.String("form_type", entry.FormType), zap.Error(err))
		h.writeJSON(w, http.StatusOK, consentLogged{
			Message: "Consent processed but not saved to database",
			Success: true,
			Warning: "Consent was not saved to database due to a storage error",
		})
		return
	}

	h.log.Info("consent logged", zap.String("id", entry.ID), zap.String("form_type", entry.FormType))
	h.writeJSON(w, http.StatusOK, consentLogged{Message: "Consent logged successfully", Success: true})
}

// WithdrawConsent handles POST /api/consent-withdraw.
func (h *Handler) WithdrawConsent(w http.ResponseWriter, r *http.Request) {
	var payload model.WithdrawalRequest
	if !h.decode(w, r, &payload) || !h.valid(w, r, payload) {
		return
	}

	f := store.Filter{Email: payload.Email, Phone: payload.Phone}
	h.log.Info("withdrawing consent", zap.String("email", f.Email), zap.String("phone", f.Phone))

	err := h.store.Withdraw(r.Context(), f, store.Withdrawal{Reason: payload.WithdrawalReason, At: h.now()})
	if err != nil {
		h.storeFailure(w, "Failed to withdraw consent", err)
		return
	}

	h.writeJSON(w, http.StatusOK, consentLogged{Message: "Consent withdrawn successfully", Success: true})
}
