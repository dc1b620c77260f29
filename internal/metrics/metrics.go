package metrics

import (
    "net/http"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    backendReqs = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pagepicker",
            Name:      "backend_requests_total",
            Help:      "Total backend requests by endpoint and result",
        },
        []string{"endpoint", "result"},
    )

    backendLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "pagepicker",
            Name:      "backend_request_duration_seconds",
            Help:      "Duration of backend requests by endpoint",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"endpoint"},
    )

    transitions = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pagepicker",
            Name:      "workflow_transitions_total",
            Help:      "Workflow step transitions by source and target step",
        },
        []string{"from", "to"},
    )

    selectedPages = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "pagepicker",
            Name:      "selected_pages",
            Help:      "Number of pages currently selected",
        },
    )

    rejected = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pagepicker",
            Name:      "rejected_actions_total",
            Help:      "User actions rejected locally, by reason",
        },
        []string{"reason"},
    )

    downloadedBytes = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "pagepicker",
            Name:      "downloaded_bytes_total",
            Help:      "Bytes of processed artifacts written to sinks",
        },
    )

    initOnce sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
    initOnce.Do(func() {
        prometheus.MustRegister(backendReqs, backendLatency, transitions, selectedPages, rejected, downloadedBytes)
    })
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveRequest(endpoint, result string, dur time.Duration) {
    backendReqs.WithLabelValues(endpoint, result).Inc()
    backendLatency.WithLabelValues(endpoint).Observe(dur.Seconds())
}

func IncTransition(from, to string) { transitions.WithLabelValues(from, to).Inc() }
func SetSelected(n int)             { selectedPages.Set(float64(n)) }
func IncRejected(reason string)     { rejected.WithLabelValues(reason).Inc() }
func AddDownloaded(n int64)         { downloadedBytes.Add(float64(n)) }
