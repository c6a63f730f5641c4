package sqlite_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/healthpredict/internal/risk"
	"github.com/Skufu/healthpredict/internal/store"
	"github.com/Skufu/healthpredict/internal/store/sqlite"
)

func openTemp(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "data", "predictions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndListNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, sev := range []risk.Severity{risk.Low, risk.High, risk.Moderate} {
		require.NoError(t, s.Save(ctx, store.Prediction{
			ID:          uuid.New(),
			Model:       "heart",
			Kind:        store.KindSingle,
			Label:       "1",
			Probability: 0.3 * float64(i+1),
			Severity:    sev,
			Rows:        1,
			Inputs:      json.RawMessage(`{"age":50}`),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, risk.Moderate, got[0].Severity)
	assert.Equal(t, risk.High, got[1].Severity)
	assert.True(t, got[0].CreatedAt.Equal(base.Add(2*time.Minute)))
	assert.JSONEq(t, `{"age":50}`, string(got[0].Inputs))
	assert.Equal(t, "heart", got[0].Model)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDuplicateIDRejected(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	p := store.Prediction{ID: uuid.New(), Model: "cancer", Kind: store.KindSingle, Severity: risk.Low, CreatedAt: time.Now()}
	require.NoError(t, s.Save(ctx, p))
	assert.Error(t, s.Save(ctx, p))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := sqlite.Open("  ")
	assert.Error(t, err)
}
