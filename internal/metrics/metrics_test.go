package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsLifecycle(t *testing.T) {
	recorder := New()

	recorder.SearchStarted()
	recorder.SearchStarted()
	recorder.SearchSucceeded(120*time.Millisecond, 3)
	recorder.SearchFailed("transport", 40*time.Millisecond)
	recorder.SearchCanceled()

	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.searchStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.searchSucceeded))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.searchFailed.WithLabelValues("transport")))
	assert.Equal(t, 0.0, testutil.ToFloat64(recorder.searchFailed.WithLabelValues("parse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.searchCanceled))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var recorder *Recorder

	assert.NotPanics(t, func() {
		recorder.SearchStarted()
		recorder.SearchSucceeded(time.Second, 1)
		recorder.SearchFailed("parse", time.Second)
		recorder.SearchCanceled()
	})
	assert.Nil(t, recorder.Registry())

	var handler http.Handler
	require.NotPanics(t, func() { handler = recorder.Handler() })
	response := httptest.NewRecorder()
	handler.ServeHTTP(response, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, response.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	recorder := New()
	recorder.SearchStarted()

	server := httptest.NewServer(recorder.Handler())
	defer server.Close()

	response, err := http.Get(server.URL)
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bookbinder_searches_started_total 1")
}
