package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookbinder"

// Recorder tracks the search lifecycle. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	searchStarted   prometheus.Counter
	searchSucceeded prometheus.Counter
	searchFailed    *prometheus.CounterVec
	searchCanceled  prometheus.Counter
	searchDuration  prometheus.Histogram
	searchResults   prometheus.Histogram
}

func New() *Recorder {
	recorder := &Recorder{
		registry: prometheus.NewRegistry(),
		searchStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of searches submitted",
		}),
		searchSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_succeeded_total",
			Help:      "Total number of searches whose results were applied",
		}),
		searchFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of failed searches by error kind",
		}, []string{"kind"}),
		searchCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_canceled_total",
			Help:      "Total number of searches canceled by a newer submit or shutdown",
		}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Histogram of completed search durations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 1.6, 10),
		}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of records returned per successful search",
			Buckets:   []float64{0, 1, 5, 10, 20, 40},
		}),
	}

	recorder.registry.MustRegister(
		recorder.searchStarted,
		recorder.searchSucceeded,
		recorder.searchFailed,
		recorder.searchCanceled,
		recorder.searchDuration,
		recorder.searchResults,
	)

	return recorder
}

func (recorder *Recorder) Registry() *prometheus.Registry {
	if recorder == nil {
		return nil
	}
	return recorder.registry
}

// Handler serves the recorder's registry. A nil recorder has nothing to serve.
func (recorder *Recorder) Handler() http.Handler {
	if recorder == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(recorder.registry, promhttp.HandlerOpts{})
}

func (recorder *Recorder) SearchStarted() {
	if recorder == nil {
		return
	}
	recorder.searchStarted.Inc()
}

func (recorder *Recorder) SearchSucceeded(duration time.Duration, results int) {
	if recorder == nil {
		return
	}
	recorder.searchSucceeded.Inc()
	recorder.searchDuration.Observe(duration.Seconds())
	recorder.searchResults.Observe(float64(results))
}

func (recorder *Recorder) SearchFailed(kind string, duration time.Duration) {
	if recorder == nil {
		return
	}
	recorder.searchFailed.WithLabelValues(kind).Inc()
	recorder.searchDuration.Observe(duration.Seconds())
}

func (recorder *Recorder) SearchCanceled() {
	if recorder == nil {
		return
	}
	recorder.searchCanceled.Inc()
}
