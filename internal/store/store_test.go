package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleksYogi/proptech-ai/internal/model"
)

func TestFilterColumn(t *testing.T) {
	col, val, err := Filter{Email: "x@y.com", Phone: "+7999"}.Column()
	require.NoError(t, err)
	assert.Equal(t, "email", col)
	assert.Equal(t, "x@y.com", val)

	col, val, err = Filter{Phone: "+7999"}.Column()
	require.NoError(t, err)
	assert.Equal(t, "phone", col)
	assert.Equal(t, "+7999", val)

	_, _, err = Filter{}.Column()
	assert.ErrorIs(t, err, ErrNoIdentifier)
}

func TestStamp(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, loc)
	entry := &model.ConsentLogEntry{Timestamp: now}

	Stamp(entry, now)

	_, err := uuid.Parse(entry.ID)
	assert.NoError(t, err)
	assert.Equal(t, time.UTC, entry.CreatedAt.Location())
	assert.True(t, entry.CreatedAt.Equal(now))
	assert.Equal(t, time.UTC, entry.Timestamp.Location())

	entry.ID = "fixed"
	Stamp(entry, now)
	assert.Equal(t, "fixed", entry.ID)
}
