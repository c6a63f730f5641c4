package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/healthpredict/internal/risk"
	"github.com/Skufu/healthpredict/internal/store"
)

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(migrationsFS, "migrations")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, ident, err := src.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "create_predictions", ident)
}

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := Open(context.Background(), "://nope")
	assert.Error(t, err)
}

// Runs only against a disposable database.
func TestStoreRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, url)
	require.NoError(t, err)
	defer s.Close()

	p := store.Prediction{
		ID:          uuid.New(),
		Model:       "heart",
		Kind:        store.KindSingle,
		Label:       "1",
		Probability: 0.83,
		Severity:    risk.High,
		Rows:        1,
		Inputs:      json.RawMessage(`{"age":50}`),
		CreatedAt:   time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, s.Save(ctx, p))

	got, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p.ID, got[0].ID)
	assert.Equal(t, risk.High, got[0].Severity)
	assert.JSONEq(t, `{"age":50}`, string(got[0].Inputs))
}
