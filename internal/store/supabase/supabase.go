// Package supabase stores consent records through the Supabase REST API (PostgREST).
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AleksYogi/proptech-ai/internal/metrics"
	"github.com/AleksYogi/proptech-ai/internal/model"
	"github.com/AleksYogi/proptech-ai/internal/store"
)

// APIError is a PostgREST error response.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("supabase: unexpected status %d", e.Status)
}

// row is the wire shape of a consent_logs record.
type row struct {
	ID               string        `json:"id,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
	IP               string        `json:"ip"`
	UserAgent        string        `json:"user_agent"`
	FormType         string        `json:"form_type"`
	Email            *string       `json:"email"`
	Phone            string        `json:"phone"`
	Consents         model.Consent `json:"consents"`
	PolicyVersion    string        `json:"policy_version"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        *time.Time    `json:"updated_at,omitempty"`
	WithdrawalReason *string       `json:"withdrawal_reason,omitempty"`
}

func toRow(e *model.ConsentLogEntry) row {
	return row{
		ID:               e.ID,
		Timestamp:        e.Timestamp,
		IP:               e.IP,
		UserAgent:        e.UserAgent,
		FormType:         e.FormType,
		Email:            e.Email,
		Phone:            e.Phone,
		Consents:         e.Consents,
		PolicyVersion:    e.PolicyVersion,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		WithdrawalReason: e.WithdrawalReason,
	}
}

func (r row) entry() model.ConsentLogEntry {
	return model.ConsentLogEntry{
		ID:               r.ID,
		Timestamp:        r.Timestamp,
		IP:               r.IP,
		UserAgent:        r.UserAgent,
		FormType:         r.FormType,
		Email:            r.Email,
		Phone:            r.Phone,
		Consents:         r.Consents,
		PolicyVersion:    r.PolicyVersion,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		WithdrawalReason: r.WithdrawalReason,
	}
}

// Store implements store.ConsentStore against a Supabase project.
type Store struct {
	baseURL string
	key     string
	client  *http.Client
	log     *zap.Logger
	now     func() time.Time
}

// New creates a Store. Missing credentials are not an error here: every
// operation reports store.ErrNotConfigured instead.
func New(baseURL, key string, client *http.Client, log *zap.Logger) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		client:  client,
		log:     log.Named("supabase"),
		now:     time.Now,
	}
}

// Configured reports whether both the project URL and key are set.
func (s *Store) Configured() bool {
	return s.baseURL != "" && s.key != ""
}

// Insert writes one record.
func (s *Store) Insert(ctx context.Context, entry *model.ConsentLogEntry) (err error) {
	defer func() { metrics.ObserveStore("insert", err) }()
	if !s.Configured() {
		return store.ErrNotConfigured
	}

	store.Stamp(entry, s.now())
	header := http.Header{"Prefer": {"return=minimal"}}
	if err := s.do(ctx, http.MethodPost, nil, []row{toRow(entry)}, header, nil); err != nil {
		return fmt.Errorf("insert consent log: %w", err)
	}
	return nil
}

// Withdraw clears both consent flags on every record of the subject.
func (s *Store) Withdraw(ctx context.Context, f store.Filter, w store.Withdrawal) (err error) {
	defer func() { metrics.ObserveStore("withdraw", err) }()
	if !s.Configured() {
		return store.ErrNotConfigured
	}
	query, err := filterQuery(f)
	if err != nil {
		return err
	}

	at := w.At
	if at.IsZero() {
		at = s.now()
	}
	patch := map[string]any{
		"consents":   store.WithdrawnConsent,
		"updated_at": at.UTC(),
	}
	if w.Reason != "" {
		patch["withdrawal_reason"] = w.Reason
	}

	header := http.Header{"Prefer": {"return=minimal"}}
	if err := s.do(ctx, http.MethodPatch, query, patch, header, nil); err != nil {
		return fmt.Errorf("withdraw consent: %w", err)
	}
	return nil
}

// Select returns every record of the subject as stored.
func (s *Store) Select(ctx context.Context, f store.Filter) (_ []model.ConsentLogEntry, err error) {
	defer func() { metrics.ObserveStore("select", err) }()
	if !s.Configured() {
		return nil, store.ErrNotConfigured
	}
	query, err := filterQuery(f)
	if err != nil {
		return nil, err
	}
	query.Set("select", "*")

	var rows []row
	if err := s.do(ctx, http.MethodGet, query, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("select consent logs: %w", err)
	}
	out := make([]model.ConsentLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry())
	}
	return out, nil
}

// Delete removes every record of the subject and returns how many were removed.
func (s *Store) Delete(ctx context.Context, f store.Filter) (_ int, err error) {
	defer func() { metrics.ObserveStore("delete", err) }()
	if !s.Configured() {
		return 0, store.ErrNotConfigured
	}
	query, err := filterQuery(f)
	if err != nil {
		return 0, err
	}
	query.Set("select", "id")

	var deleted []json.RawMessage
	header := http.Header{"Prefer": {"return=representation"}}
	if err := s.do(ctx, http.MethodDelete, query, nil, header, &deleted); err != nil {
		return 0, fmt.Errorf("delete consent logs: %w", err)
	}
	return len(deleted), nil
}

func filterQuery(f store.Filter) (url.Values, error) {
	col, val, err := f.Column()
	if err != nil {
		return nil, err
	}
	return url.Values{col: {"eq." + val}}, nil
}

func (s *Store) do(ctx context.Context, method string, query url.Values, body any, header http.Header, out any) error {
	endpoint := s.baseURL + "/rest/v1/" + store.Table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if isJSON(resp.Header.Get("Content-Type")) {
			_ = json.Unmarshal(raw, apiErr)
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		s.log.Warn("supabase request failed",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message))
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
