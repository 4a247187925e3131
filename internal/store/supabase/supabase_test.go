package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AleksYogi/proptech-ai/internal/model"
	"github.com/AleksYogi/proptech-ai/internal/store"
)

const testKey = "service-role-key"

// fakePostgREST keeps consent_logs rows in memory and understands the
// eq filters the adapter sends.
type fakePostgREST struct {
	t    *testing.T
	mu   sync.Mutex
	rows []map[string]any
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	assert.Equal(f.t, "/rest/v1/consent_logs", r.URL.Path)
	if r.Header.Get("apikey") != testKey || r.Header.Get("Authorization") != "Bearer "+testKey {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key","hint":"Double check your Supabase anon or service_role API key."}`))
		return
	}

	col, val := "", ""
	for k, vs := range r.URL.Query() {
		if k == "select" {
			continue
		}
		col, val = k, strings.TrimPrefix(vs[0], "eq.")
	}
	match := func(row map[string]any) bool {
		v, _ := row[col].(string)
		return col != "" && v == val
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodPost:
		var in []map[string]any
		raw, _ := io.ReadAll(r.Body)
		require.NoError(f.t, json.Unmarshal(raw, &in))
		f.rows = append(f.rows, in...)
		w.WriteHeader(http.StatusCreated)
	case http.MethodPatch:
		var patch map[string]any
		raw, _ := io.ReadAll(r.Body)
		require.NoError(f.t, json.Unmarshal(raw, &patch))
		for _, row := range f.rows {
			if match(row) {
				for k, v := range patch {
					row[k] = v
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		out := make([]map[string]any, 0)
		for _, row := range f.rows {
			if match(row) {
				out = append(out, row)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	case http.MethodDelete:
		kept := f.rows[:0]
		deleted := make([]map[string]any, 0)
		for _, row := range f.rows {
			if match(row) {
				deleted = append(deleted, map[string]any{"id": row["id"]})
				continue
			}
			kept = append(kept, row)
		}
		f.rows = kept
		assert.Equal(f.t, "return=representation", r.Header.Get("Prefer"))
		_ = json.NewEncoder(w).Encode(deleted)
	}
}

func newTestStore(t *testing.T) (*Store, *fakePostgREST) {
	fake := &fakePostgREST{t: t}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s := New(srv.URL, testKey, srv.Client(), zaptest.NewLogger(t))
	s.now = func() time.Time { return time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC) }
	return s, fake
}

func strPtr(s string) *string { return &s }

func TestStore_InsertThenSelect(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	entry := &model.ConsentLogEntry{
		Timestamp:     time.Date(2025, 10, 15, 9, 30, 0, 0, time.UTC),
		IP:            "203.0.113.7",
		UserAgent:     "Mozilla/5.0",
		FormType:      model.FormTypeLead,
		Email:         strPtr("x@y.com"),
		Phone:         "+79991234567",
		Consents:      model.Consent{PrivacyPolicy: true, DataTransfer: true},
		PolicyVersion: "2025-10-15",
	}
	require.NoError(t, s.Insert(ctx, entry))
	require.Len(t, fake.rows, 1)
	assert.Equal(t, "2025-10-15T10:00:00Z", fake.rows[0]["created_at"])
	assert.Equal(t, "2025-10-15T09:30:00Z", fake.rows[0]["timestamp"])
	assert.Equal(t, "2025-10-15", fake.rows[0]["policy_version"])
	assert.NotEmpty(t, entry.ID)

	got, err := s.Select(ctx, store.Filter{Email: "x@y.com"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-10-15", got[0].PolicyVersion)
	assert.Equal(t, model.Consent{PrivacyPolicy: true, DataTransfer: true}, got[0].Consents)
	assert.Equal(t, entry.ID, got[0].ID)
	assert.Equal(t, "203.0.113.7", got[0].IP)

	none, err := s.Select(ctx, store.Filter{Email: "other@y.com"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_WithdrawIsIdempotent(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &model.ConsentLogEntry{
		Phone:    "+7999",
		FormType: model.FormTypeLead,
		Consents: model.Consent{PrivacyPolicy: true, DataTransfer: true},
	}))

	for i := 0; i < 2; i++ {
		require.NoError(t, s.Withdraw(ctx, store.Filter{Phone: "+7999"}, store.Withdrawal{Reason: "не актуально"}))
		got, err := s.Select(ctx, store.Filter{Phone: "+7999"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, store.WithdrawnConsent, got[0].Consents)
		require.NotNil(t, got[0].WithdrawalReason)
		assert.Equal(t, "не актуально", *got[0].WithdrawalReason)
		require.NotNil(t, got[0].UpdatedAt)
	}
	assert.Len(t, fake.rows, 1)
}

func TestStore_WithdrawWithoutReasonLeavesColumnAlone(t *testing.T) {
	var patch map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.x@y.com", r.URL.Query().Get("email"))
		assert.Empty(t, r.URL.Query().Get("phone"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &patch)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := New(srv.URL, testKey, srv.Client(), zaptest.NewLogger(t))
	require.NoError(t, s.Withdraw(context.Background(), store.Filter{Email: "x@y.com", Phone: "+7999"}, store.Withdrawal{}))

	assert.NotContains(t, patch, "withdrawal_reason")
	assert.Contains(t, patch, "updated_at")
	assert.Equal(t, map[string]any{"privacyPolicy": false, "dataTransfer": false}, patch["consents"])
}

func TestStore_DeleteReturnsAffectedRows(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	for _, email := range []string{"x@y.com", "x@y.com", "z@y.com"} {
		require.NoError(t, s.Insert(ctx, &model.ConsentLogEntry{Email: strPtr(email), FormType: "cookie_banner"}))
	}

	n, err := s.Delete(ctx, store.Filter{Email: "x@y.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, fake.rows, 1)

	n, err = s.Delete(ctx, store.Filter{Email: "x@y.com"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_NotConfigured(t *testing.T) {
	ctx := context.Background()
	s := New("", "", http.DefaultClient, zaptest.NewLogger(t))

	assert.False(t, s.Configured())
	assert.ErrorIs(t, s.Insert(ctx, &model.ConsentLogEntry{}), store.ErrNotConfigured)
	assert.ErrorIs(t, s.Withdraw(ctx, store.Filter{Email: "x@y.com"}, store.Withdrawal{}), store.ErrNotConfigured)
	_, err := s.Select(ctx, store.Filter{Email: "x@y.com"})
	assert.ErrorIs(t, err, store.ErrNotConfigured)
	_, err = s.Delete(ctx, store.Filter{Email: "x@y.com"})
	assert.ErrorIs(t, err, store.ErrNotConfigured)
}

func TestStore_NoIdentifier(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Select(context.Background(), store.Filter{})
	assert.ErrorIs(t, err, store.ErrNoIdentifier)
}

func TestStore_UpstreamErrors(t *testing.T) {
	t.Run("json error message is surfaced", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.key = "wrong"
		err := s.Insert(context.Background(), &model.ConsentLogEntry{})
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, "insert consent log: Invalid API key", err.Error())
	})

	t.Run("html body is surfaced as text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("<h1>maintenance</h1>"))
		}))
		defer srv.Close()

		s := New(srv.URL, testKey, srv.Client(), zaptest.NewLogger(t))
		_, err := s.Select(context.Background(), store.Filter{Phone: "+7999"})
		require.Error(t, err)
		assert.Equal(t, "select consent logs: <h1>maintenance</h1>", err.Error())
	})
}
