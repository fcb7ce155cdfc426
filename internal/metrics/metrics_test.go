package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreHook(t *testing.T) {
	m := New(false)
	m.ObserveRead(time.Millisecond, 4)
	m.ObserveBatchCommit(2*time.Millisecond, 3, 40)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOps.WithLabelValues("read")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.storeBytes.WithLabelValues("read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOps.WithLabelValues("commit")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.storeOps.WithLabelValues("batch_op")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.storeBytes.WithLabelValues("commit")))
}

func TestHandlerExposesIngestCounters(t *testing.T) {
	m := New(false)
	m.Submissions.WithLabelValues("ok").Inc()
	m.Turns.Add(5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, `battlelog_ingest_submissions_total{outcome="ok"} 1`))
	assert.True(t, strings.Contains(text, "battlelog_ingest_turns_total 5"))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(true), New(true)
	a.Events.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Events))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Events))
}
