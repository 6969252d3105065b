package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-risk/internal/platform/logger"
)

// Metrics is the service's Prometheus registry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	scores       *prometheus.CounterVec
	scoreLatency *prometheus.HistogramVec
	cacheOps     *prometheus.CounterVec

	reloads         *prometheus.CounterVec
	reloadLatency   prometheus.Histogram
	snapshotSeq     prometheus.Gauge
	snapshotRecords prometheus.Gauge
	droppedRows     *prometheus.GaugeVec
	modelAvailable  prometheus.Gauge

	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "risk_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "risk_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		scores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_scores_total",
			Help: "Risk predictions by estimate path and category.",
		}, []string{"path", "category"}),
		scoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "risk_score_duration_seconds",
			Help:    "Time to assemble features and score, by estimate path.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"path"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_cache_operations_total",
			Help: "Prediction cache lookups by result.",
		}, []string{"result"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_snapshot_reloads_total",
			Help: "Snapshot loads by outcome.",
		}, []string{"outcome"}),
		reloadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_snapshot_reload_duration_seconds",
			Help:    "Snapshot build time in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		snapshotSeq: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "risk_snapshot_sequence",
			Help: "Sequence number of the published snapshot.",
		}),
		snapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "risk_snapshot_records",
			Help: "Cleaned grade records in the published snapshot.",
		}),
		droppedRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "risk_snapshot_dropped_rows",
			Help: "Rows dropped while cleaning the published snapshot, by reason.",
		}, []string{"reason"}),
		modelAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "risk_model_available",
			Help: "1 when the published snapshot carries a loaded model.",
		}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "risk_redis_up",
			Help: "1 when the prediction cache redis answers ping.",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "risk_redis_ping_seconds",
			Help: "Last redis ping latency in seconds.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.scores, m.scoreLatency, m.cacheOps,
		m.reloads, m.reloadLatency, m.snapshotSeq, m.snapshotRecords, m.droppedRows, m.modelAvailable,
		m.redisUp, m.redisPing,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveScore records one prediction. path is "model" or "heuristic".
func (m *Metrics) ObserveScore(path, category string, dur time.Duration) {
	if m == nil {
		return
	}
	m.scores.WithLabelValues(path, category).Inc()
	m.scoreLatency.WithLabelValues(path).Observe(dur.Seconds())
}

// IncCache records a cache lookup result: "hit", "miss" or "error".
func (m *Metrics) IncCache(result string) {
	if m == nil {
		return
	}
	m.cacheOps.WithLabelValues(result).Inc()
}

// ObserveReload records a snapshot load attempt. outcome is "ok" or "error".
func (m *Metrics) ObserveReload(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(outcome).Inc()
	m.reloadLatency.Observe(dur.Seconds())
}

// SetSnapshot publishes gauges describing the current snapshot.
func (m *Metrics) SetSnapshot(seq uint64, records int, dropped map[string]int, modelAvailable bool) {
	if m == nil {
		return
	}
	m.snapshotSeq.Set(float64(seq))
	m.snapshotRecords.Set(float64(records))
	m.droppedRows.Reset()
	for reason, n := range dropped {
		m.droppedRows.WithLabelValues(reason).Set(float64(n))
	}
	if modelAvailable {
		m.modelAvailable.Set(1)
	} else {
		m.modelAvailable.Set(0)
	}
}

// StartRedisCollector pings rdb every interval until ctx is done.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
