package notifier

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AleksYogi/proptech-ai/internal/metrics"
	"github.com/AleksYogi/proptech-ai/internal/model"
)

const (
	// DefaultResendAPI is the Resend REST endpoint.
	DefaultResendAPI = "https://api.resend.com"
	emailSubject     = "Новая заявка с сайта Proptech AI"
)

// Email sends lead notifications through Resend.
type Email struct {
	baseURL string
	apiKey  string
	from    string
	to      string
	client  *http.Client
	log     *zap.Logger
}

// NewEmail creates a Resend sender. An empty baseURL selects DefaultResendAPI.
func NewEmail(baseURL, apiKey, from, to string, client *http.Client, log *zap.Logger) *Email {
	if baseURL == "" {
		baseURL = DefaultResendAPI
	}
	return &Email{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		from:    from,
		to:      to,
		client:  client,
		log:     log.Named("email"),
	}
}

// Name implements Notifier.
func (e *Email) Name() string { return "email" }

// Configured implements Notifier.
func (e *Email) Configured() bool { return e.apiKey != "" && e.to != "" }

// Send implements Notifier.
func (e *Email) Send(ctx context.Context, lead model.LeadSubmission) Result {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+e.apiKey)

	res := postJSON(ctx, e.client, e.baseURL+"/emails", header, map[string]string{
		"from":    e.from,
		"to":      e.to,
		"subject": emailSubject,
		"html":    EmailHTML(lead),
	}, "Email service error", resendError)

	metrics.ObserveNotification(e.Name(), res.Success)
	if !res.Success {
		e.log.Error("email api error", zap.String("error", res.Error))
	}
	return res
}

// resendError reads {"error": "..."}, {"error": {"message": "..."}} or {"message": "..."}.
func resendError(m map[string]any) string {
	if msg := stringField(m, "error"); msg != "" {
		return msg
	}
	if nested, ok := m["error"].(map[string]any); ok {
		if msg := stringField(nested, "message"); msg != "" {
			return msg
		}
	}
	return stringField(m, "message")
}

// EmailHTML renders the notification body. User input is escaped.
func EmailHTML(lead model.LeadSubmission) string {
	var b strings.Builder
	b.WriteString("<h2>" + emailSubject + "</h2>\n")
	fmt.Fprintf(&b, "<p><strong>Имя:</strong> %s</p>\n", html.EscapeString(lead.Name))
	fmt.Fprintf(&b, "<p><strong>Телефон:</strong> %s</p>\n", html.EscapeString(lead.Phone))
	fmt.Fprintf(&b, "<p><strong>Компания:</strong> %s</p>\n", html.EscapeString(lead.Company))
	if lead.ConvenientTime != "" {
		fmt.Fprintf(&b, "<p><strong>Удобное время для связи:</strong> %s</p>\n", html.EscapeString(lead.ConvenientTime))
	}
	if lead.Consent != nil {
		fmt.Fprintf(&b, "<p><strong>Согласия:</strong></p>\n<ul>\n<li>Политика конфиденциальности: %s</li>\n<li>Передача данных третьим лицам: %s</li>\n</ul>\n",
			yesNo(lead.Consent.PrivacyPolicy), yesNo(lead.Consent.DataTransfer))
	} else {
		b.WriteString("<p><strong>Согласия:</strong> Не указаны</p>\n")
	}
	return b.String()
}
