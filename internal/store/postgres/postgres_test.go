package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/AleksYogi/proptech-ai/internal/model"
	"github.com/AleksYogi/proptech-ai/internal/store"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/leads?sslmode=disable", migrateURL("postgres://u:p@db:5432/leads?sslmode=disable"))
	assert.Equal(t, "pgx5://u:p@db/leads", migrateURL("postgresql://u:p@db/leads"))
	assert.Equal(t, "pgx5://u:p@db/leads", migrateURL("pgx5://u:p@db/leads"))
}

// setupStore starts PostgreSQL in a container, applies migrations and
// returns a Store over it. Skipped unless TEST_INTEGRATION is set.
func setupStore(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	log := zaptest.NewLogger(t)

	container, err := tcpostgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		tcpostgres.WithDatabase("proptech_test"),
		tcpostgres.WithUsername("proptech"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(dsn, log))
	// second run must be a no-op
	require.NoError(t, Migrate(dsn, log))

	pool, err := Connect(ctx, dsn, log)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return New(pool)
}

func TestStore_Integration(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	email := "x@y.com"

	for i := 0; i < 2; i++ {
		require.NoError(t, s.Insert(ctx, &model.ConsentLogEntry{
			Timestamp:     time.Date(2025, 10, 15, 9, 30, 0, 0, time.UTC),
			IP:            "203.0.113.7",
			UserAgent:     "Mozilla/5.0",
			FormType:      model.FormTypeLead,
			Email:         &email,
			Phone:         "+79991234567",
			Consents:      model.Consent{PrivacyPolicy: true, DataTransfer: i == 0},
			PolicyVersion: "2025-10-15",
		}))
	}
	require.NoError(t, s.Insert(ctx, &model.ConsentLogEntry{
		Timestamp: time.Now(), FormType: "cookie_banner", Phone: "+70000000000", PolicyVersion: "2025-10-15",
	}))

	t.Run("select round trip", func(t *testing.T) {
		rows, err := s.Select(ctx, store.Filter{Email: email})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		consents := make([]model.Consent, 0, len(rows))
		for _, r := range rows {
			assert.Equal(t, "2025-10-15", r.PolicyVersion)
			assert.Nil(t, r.UpdatedAt)
			consents = append(consents, r.Consents)
		}
		assert.ElementsMatch(t, []model.Consent{
			{PrivacyPolicy: true, DataTransfer: true},
			{PrivacyPolicy: true, DataTransfer: false},
		}, consents)
	})

	t.Run("withdraw twice", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			require.NoError(t, s.Withdraw(ctx, store.Filter{Phone: "+79991234567"}, store.Withdrawal{Reason: "stop"}))
		}
		rows, err := s.Select(ctx, store.Filter{Phone: "+79991234567"})
		require.NoError(t, err)
		for _, r := range rows {
			assert.Equal(t, store.WithdrawnConsent, r.Consents)
			require.NotNil(t, r.WithdrawalReason)
			assert.Equal(t, "stop", *r.WithdrawalReason)
		}

		require.NoError(t, s.Withdraw(ctx, store.Filter{Phone: "+79991234567"}, store.Withdrawal{}))
		rows, err = s.Select(ctx, store.Filter{Phone: "+79991234567"})
		require.NoError(t, err)
		require.NotNil(t, rows[0].WithdrawalReason)
	})

	t.Run("delete counts rows", func(t *testing.T) {
		n, err := s.Delete(ctx, store.Filter{Email: email})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		rows, err := s.Select(ctx, store.Filter{Phone: "+70000000000"})
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}
