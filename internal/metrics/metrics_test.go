package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Searches.WithLabelValues(Outcome(nil)).Inc()
	m.LLMRequests.WithLabelValues("ollama", Outcome(errors.New("down"))).Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Searches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequests.WithLabelValues("ollama", "error")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "docai_searches_total")
	assert.Contains(t, string(body), `docai_llm_requests_total{outcome="error",provider="ollama"} 1`)
}

func TestNewIsIndependent(t *testing.T) {
	a, b := New(), New()
	a.ChunksIndexed.Add(3)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ChunksIndexed))
}
