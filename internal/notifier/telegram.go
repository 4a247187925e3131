package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AleksYogi/proptech-ai/internal/metrics"
	"github.com/AleksYogi/proptech-ai/internal/model"
)

// DefaultTelegramAPI is the public Bot API endpoint.
const DefaultTelegramAPI = "https://api.telegram.org"

// Telegram posts lead messages to a chat through the Bot API.
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
	log     *zap.Logger
}

// NewTelegram creates a Telegram sender. An empty baseURL selects DefaultTelegramAPI.
func NewTelegram(baseURL, token, chatID string, client *http.Client, log *zap.Logger) *Telegram {
	if baseURL == "" {
		baseURL = DefaultTelegramAPI
	}
	return &Telegram{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		client:  client,
		log:     log.Named("telegram"),
	}
}

// Name implements Notifier.
func (t *Telegram) Name() string { return "telegram" }

// Configured implements Notifier.
func (t *Telegram) Configured() bool { return t.token != "" && t.chatID != "" }

// Send implements Notifier.
func (t *Telegram) Send(ctx context.Context, lead model.LeadSubmission) Result {
	t.log.Debug("sending telegram message",
		zap.String("token", maskToken(t.token)),
		zap.String("chat_id", t.chatID))

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	res := postJSON(ctx, t.client, url, nil, map[string]string{
		"chat_id": t.chatID,
		"text":    TelegramText(lead),
	}, "Telegram API error", func(m map[string]any) string {
		return stringField(m, "description")
	})

	metrics.ObserveNotification(t.Name(), res.Success)
	if !res.Success {
		t.log.Error("telegram api error", zap.String("error", res.Error))
	}
	return res
}

// TelegramText renders the chat message for a lead.
func TelegramText(lead model.LeadSubmission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Новая заявка: Имя — %s, Телефон — %s, Компания — %s", lead.Name, lead.Phone, lead.Company)
	if lead.ConvenientTime != "" {
		fmt.Fprintf(&b, "\nУдобное время для связи: %s", lead.ConvenientTime)
	}
	if lead.Consent != nil {
		fmt.Fprintf(&b, "\n\nСогласия:\n- Политика конфиденциальности: %s\n- Передача данных третьим лицам: %s",
			yesNo(lead.Consent.PrivacyPolicy), yesNo(lead.Consent.DataTransfer))
	} else {
		b.WriteString("\n\nСогласия: Не указаны")
	}
	return b.String()
}

func maskToken(token string) string {
	if len(token) <= 10 {
		return "***"
	}
	return token[:10] + "..."
}
