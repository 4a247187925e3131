// Package notifier delivers new-lead notifications to the sales team.
//
// Every sender returns a Result instead of an error: transport failures,
// upstream rejections and undecodable responses all end up in Result.Error.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/AleksYogi/proptech-ai/internal/model"
)

// Result is the uniform outcome of a single send.
type Result struct {
	Success bool
	Data    json.RawMessage
	Error   string
}

// Notifier sends one lead to one provider.
type Notifier interface {
	// Name identifies the provider in logs, metrics and error lists.
	Name() string
	// Configured reports whether the provider credentials are present.
	Configured() bool
	Send(ctx context.Context, lead model.LeadSubmission) Result
}

func failure(err error) Result {
	return Result{Error: err.Error()}
}

// postJSON sends body to url and normalizes the response. describe extracts
// the provider's error message from a decoded JSON error body.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, body any,
	fallback string, describe func(map[string]any) string) Result {
	payload, err := json.Marshal(body)
	if err != nil {
		return failure(fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return failure(err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return failure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if !json.Valid(raw) {
			return failure(errors.New("invalid JSON in provider response"))
		}
		return Result{Success: true, Data: raw}
	}

	return Result{Error: upstreamError(resp.Header.Get("Content-Type"), raw, fallback, describe)}
}

// upstreamError picks the message of a non-2xx response. JSON bodies go
// through describe; anything else (an HTML error page from a proxy, say) is
// returned as text so a decode failure cannot hide the original status.
func upstreamError(contentType string, raw []byte, fallback string, describe func(map[string]any) string) string {
	if isJSON(contentType) {
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return err.Error()
		}
		if msg := describe(decoded); msg != "" {
			return msg
		}
		return fallback
	}
	if text := string(raw); text != "" {
		return text
	}
	return fallback
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return "Да"
	}
	return "Нет"
}
