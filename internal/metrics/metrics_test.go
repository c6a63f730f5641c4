package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/healthpredict/internal/metrics"
)

func TestCounters(t *testing.T) {
	m := metrics.New()
	m.ObservePrediction("heart", "high")
	m.ObservePrediction("heart", "high")
	m.ObservePrediction("cancer", "low")
	m.ObserveError("heart", metrics.KindSchemaMismatch)
	m.ObserveBatch(12)

	expected := `
# HELP healthpredict_predictions_total Classified records by model and severity tier.
# TYPE healthpredict_predictions_total counter
healthpredict_predictions_total{model="cancer",severity="low"} 1
healthpredict_predictions_total{model="heart",severity="high"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "healthpredict_predictions_total"))

	n, err := testutil.GatherAndCount(m.Registry(), "healthpredict_prediction_errors_total", "healthpredict_batch_rows")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.ObservePrediction("heart", "moderate")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `healthpredict_predictions_total{model="heart",severity="moderate"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
