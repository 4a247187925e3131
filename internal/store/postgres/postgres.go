// Package postgres stores consent records directly in PostgreSQL via pgx.
// The schema is embedded and applied with golang-migrate.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/AleksYogi/proptech-ai/internal/metrics"
	"github.com/AleksYogi/proptech-ai/internal/model"
	"github.com/AleksYogi/proptech-ai/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Connect opens a pool and pings the server.
func Connect(ctx context.Context, dsn string, log *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Info("connected to postgres",
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database))
	return pool, nil
}

// Migrate applies the embedded migrations.
func Migrate(dsn string, log *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// migrateURL rewrites a libpq URL to the scheme registered by the pgx/v5 migrate driver.
func migrateURL(dsn string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, scheme) {
			return "pgx5://" + strings.TrimPrefix(dsn, scheme)
		}
	}
	return dsn
}

const columns = `id, "timestamp", ip, user_agent, form_type, email, phone,
	consents, policy_version, created_at, updated_at, withdrawal_reason`

// Store implements store.ConsentStore on a consent_logs table.
type Store struct {
	db  DBTX
	now func() time.Time
}

// New creates a Store over db.
func New(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

// Insert writes one record.
func (s *Store) Insert(ctx context.Context, entry *model.ConsentLogEntry) (err error) {
	defer func() { metrics.ObserveStore("insert", err) }()

	store.Stamp(entry, s.now())
	_, err = s.db.Exec(ctx, `
		INSERT INTO consent_logs (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.ID, entry.Timestamp, entry.IP, entry.UserAgent, entry.FormType, entry.Email, entry.Phone,
		entry.Consents, entry.PolicyVersion, entry.CreatedAt, entry.UpdatedAt, entry.WithdrawalReason,
	)
	if err != nil {
		return fmt.Errorf("insert consent log: %w", err)
	}
	return nil
}

// Withdraw clears both consent flags on every record of the subject. An
// empty reason keeps whatever reason was recorded before.
func (s *Store) Withdraw(ctx context.Context, f store.Filter, w store.Withdrawal) (err error) {
	defer func() { metrics.ObserveStore("withdraw", err) }()
	col, val, err := f.Column()
	if err != nil {
		return err
	}

	at := w.At
	if at.IsZero() {
		at = s.now()
	}
	var reason *string
	if w.Reason != "" {
		reason = &w.Reason
	}

	_, err = s.db.Exec(ctx, fmt.Sprintf(`
		UPDATE consent_logs
		SET consents = $1, updated_at = $2, withdrawal_reason = COALESCE($3, withdrawal_reason)
		WHERE %s = $4`, col),
		store.WithdrawnConsent, at.UTC(), reason, val,
	)
	if err != nil {
		return fmt.Errorf("withdraw consent: %w", err)
	}
	return nil
}

// Select returns every record of the subject, oldest first.
func (s *Store) Select(ctx context.Context, f store.Filter) (_ []model.ConsentLogEntry, err error) {
	defer func() { metrics.ObserveStore("select", err) }()
	col, val, err := f.Column()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM consent_logs WHERE %s = $1 ORDER BY created_at`, columns, col), val)
	if err != nil {
		return nil, fmt.Errorf("select consent logs: %w", err)
	}
	defer rows.Close()

	out := make([]model.ConsentLogEntry, 0)
	for rows.Next() {
		var e model.ConsentLogEntry
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.IP, &e.UserAgent, &e.FormType, &e.Email, &e.Phone,
			&e.Consents, &e.PolicyVersion, &e.CreatedAt, &e.UpdatedAt, &e.WithdrawalReason,
		); err != nil {
			return nil, fmt.Errorf("scan consent log: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent logs: %w", err)
	}
	return out, nil
}

// Delete removes every record of the subject and returns the affected row count.
func (s *Store) Delete(ctx context.Context, f store.Filter) (_ int, err error) {
	defer func() { metrics.ObserveStore("delete", err) }()
	col, val, err := f.Column()
	if err != nil {
		return 0, err
	}

	tag, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM consent_logs WHERE %s = $1`, col), val)
	if err != nil {
		return 0, fmt.Errorf("delete consent logs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
