package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_page_fetches_total",
			Help: "Total number of page fetches, by host and outcome",
		},
		[]string{"host", "status"},
	)

	PageFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gleaner_page_fetch_duration_seconds",
			Help:    "Duration of page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"host"},
	)

	PageBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_page_bytes_total",
			Help: "Total body bytes downloaded",
		},
		[]string{"host"},
	)

	FactsExtractedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_facts_extracted_total",
			Help: "Facts extracted per page before cross-page deduplication",
		},
		[]string{"kind"},
	)

	LinksDiscardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_links_discarded_total",
			Help: "Links not followed, by reason",
		},
		[]string{"reason"},
	)
)

// RecordFetch updates the fetch metrics for one page. status is the HTTP
// status code, or "error" when no response was received.
func RecordFetch(host string, statusCode int, failed bool, d time.Duration, bytes int) {
	status := strconv.Itoa(statusCode)
	if failed && statusCode == 0 {
		status = "error"
	}

	PageFetchesTotal.WithLabelValues(host, status).Inc()
	PageFetchDuration.WithLabelValues(host).Observe(d.Seconds())
	PageBytesTotal.WithLabelValues(host).Add(float64(bytes))
}

// RecordFacts adds n facts of the given kind.
func RecordFacts(kind string, n int) {
	if n <= 0 {
		return
	}
	FactsExtractedTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordLinkDiscarded counts a link that was not followed.
func RecordLinkDiscarded(reason string) {
	LinksDiscardedTotal.WithLabelValues(reason).Inc()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", srv.Addr, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
