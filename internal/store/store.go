// Package store defines the consent log persistence port shared by the
// Supabase and Postgres adapters.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AleksYogi/proptech-ai/internal/model"
)

// Table is the relation holding consent records.
const Table = "consent_logs"

var (
	// ErrNotConfigured is returned when the store has no credentials.
	ErrNotConfigured = errors.New("Supabase is not configured")
	// ErrNoIdentifier is returned for a filter with neither email nor phone.
	ErrNoIdentifier = errors.New("email or phone is required")
)

// ConsentStore persists consent records. Every method runs a single statement.
type ConsentStore interface {
	Insert(ctx context.Context, entry *model.ConsentLogEntry) error
	Withdraw(ctx context.Context, f Filter, w Withdrawal) error
	Select(ctx context.Context, f Filter) ([]model.ConsentLogEntry, error)
	Delete(ctx context.Context, f Filter) (int, error)
}

// Filter identifies a data subject. Email takes precedence over Phone.
type Filter struct {
	Email string
	Phone string
}

// Column returns the column and value the filter matches on.
func (f Filter) Column() (string, string, error) {
	switch {
	case f.Email != "":
		return "email", f.Email, nil
	case f.Phone != "":
		return "phone", f.Phone, nil
	default:
		return "", "", ErrNoIdentifier
	}
}

// Withdrawal is the patch applied when a subject withdraws consent.
type Withdrawal struct {
	Reason string
	At     time.Time
}

// WithdrawnConsent is the consent state written by every withdrawal.
var WithdrawnConsent = model.Consent{PrivacyPolicy: false, DataTransfer: false}

// Stamp fills the server-assigned fields of a new record.
func Stamp(entry *model.ConsentLogEntry, now time.Time) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = now.UTC()
	entry.Timestamp = entry.Timestamp.UTC()
}
