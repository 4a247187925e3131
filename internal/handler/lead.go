package handler

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/AleksYogi/proptech-ai/internal/model"
	"github.com/AleksYogi/proptech-ai/internal/notifier"
)

// notifierText holds the client-facing wording for one provider.
type notifierText struct {
	label   string
	failed  string
	missing string
}

var notifierTexts = map[string]notifierText{
	"telegram": {
		label:   "Telegram",
		failed:  "Failed to send notification to Telegram",
		missing: "Telegram credentials not configured",
	},
	"email": {
		label:   "Email",
		failed:  "Failed to send notification by email",
		missing: "RESEND_API_KEY or LEAD_EMAIL_TO not configured",
	},
}

func textFor(n notifier.Notifier) notifierText {
	if t, ok := notifierTexts[n.Name()]; ok {
		return t
	}
	return notifierText{
		label:   n.Name(),
		failed:  "Failed to send notification",
		missing: n.Name() + " credentials not configured",
	}
}

// SubmitLead handles POST /api/lead.
func (h *Handler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	var payload model.LeadSubmission
	if !h.decode(w, r, &payload) || !h.valid(w, r, payload) {
		return
	}
	lead := payload.Sanitized()

	h.logLeadConsent(r, lead)

	if h.notifyAll {
		h.notifyEach(w, r, lead)
		return
	}
	h.notifyPrimary(w, r, lead)
}

// logLeadConsent records the consent given on the lead form. Failures are
// logged only: the lead still goes out.
func (h *Handler) logLeadConsent(r *http.Request, lead model.LeadSubmission) {
	entry := &model.ConsentLogEntry{
		Timestamp:     h.now(),
		IP:            clientIP(r, ""),
		UserAgent:     userAgent(r, ""),
		FormType:      model.FormTypeLead,
		Phone:         lead.Phone,
		PolicyVersion: h.policyVersion,
	}
	if lead.Consent != nil {
		entry.Consents = *lead.Consent
	}

	if err := h.store.Insert(r.Context(), entry); err != nil {
		h.log.Warn("consent log from lead form not saved",
			zap.String("phone", entry.Phone),
			zap.String("ip", entry.IP),
			zap.Error(err))
		return
	}
	h.log.Info("consent log from lead form saved", zap.String("id", entry.ID))
}

func (h *Handler) notifyPrimary(w http.ResponseWriter, r *http.Request, lead model.LeadSubmission) {
	if len(h.notifiers) == 0 {
		h.log.Error("no lead notifier configured")
		h.writeJSON(w, http.StatusInternalServerError, validationFailure{
			Message: "Failed to send notification",
			Errors:  []string{"No notifier configured"},
		})
		return
	}

	n := h.notifiers[0]
	text := textFor(n)
	if !n.Configured() {
		h.log.Error("notifier credentials not configured", zap.String("notifier", n.Name()))
		h.writeJSON(w, http.StatusInternalServerError, validationFailure{
			Message: text.failed,
			Errors:  []string{text.missing},
		})
		return
	}

	res := n.Send(r.Context(), lead)
	if !res.Success {
		h.log.Error("lead notification failed", zap.String("notifier", n.Name()), zap.String("error", res.Error))
		errMsg := res.Error
		if errMsg == "" {
			errMsg = "Unknown error"
		}
		h.writeJSON(w, http.StatusInternalServerError, validationFailure{
			Message: text.failed,
			Errors:  []string{errMsg},
		})
		return
	}

	h.log.Info("lead submitted", zap.String("notifier", n.Name()), zap.String("company", lead.Company))
	h.writeJSON(w, http.StatusOK, message{Message: "Lead submitted successfully"})
}

// notifyEach tries every notifier and succeeds when at least one delivered.
func (h *Handler) notifyEach(w http.ResponseWriter, r *http.Request, lead model.LeadSubmission) {
	sent := 0
	failures := make([]string, 0)
	for _, n := range h.notifiers {
		text := textFor(n)
		if !n.Configured() {
			h.log.Error("notifier credentials not configured", zap.String("notifier", n.Name()))
			failures = append(failures, fmt.Sprintf("%s failed: %s", text.label, text.missing))
			continue
		}
		res := n.Send(r.Context(), lead)
		if !res.Success {
			h.log.Error("lead notification failed", zap.String("notifier", n.Name()), zap.String("error", res.Error))
			failures = append(failures, fmt.Sprintf("%s failed: %s", text.label, res.Error))
			continue
		}
		sent++
	}

	if sent == 0 {
		h.writeJSON(w, http.StatusInternalServerError, validationFailure{
			Message: "Failed to send notifications",
			Errors:  failures,
		})
		return
	}

	h.log.Info("lead submitted", zap.Int("delivered", sent), zap.Int("failed", len(failures)))
	h.writeJSON(w, http.StatusOK, validationFailure{
		Message: "Lead submitted successfully",
		Errors:  failures,
	})
}
