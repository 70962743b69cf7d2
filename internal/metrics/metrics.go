package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
)

// Collector manages all StatusHawk metrics
type Collector struct {
	// Counters
	subjectsChecked prometheus.Counter
	subjectsUp      prometheus.Counter
	subjectsDown    prometheus.Counter
	checksErrors    prometheus.Counter

	// Histograms
	checkDuration prometheus.Histogram

	// Gauges
	activeChecks  prometheus.Gauge
	queueSize     prometheus.Gauge
	workersActive prometheus.Gauge

	// Labels
	verdictsPerSource *prometheus.CounterVec
	errorsPerType     *prometheus.CounterVec

	registry *prometheus.Registry
	server   *http.Server
	mutex    sync.RWMutex
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
	}

	c.initMetrics()
	c.registerMetrics()

	return c
}

func (c *Collector) initMetrics() {
	c.subjectsChecked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "statushawk_subjects_checked_total",
		Help: "Total number of subjects checked",
	})

	c.subjectsUp = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "statushawk_subjects_up_total",
		Help: "Total number of subjects resolved UP",
	})

	c.subjectsDown = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "statushawk_subjects_down_total",
		Help: "Total number of subjects resolved DOWN",
	})

	c.checksErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "statushawk_checks_errors_total",
		Help: "Total number of check errors",
	})

	c.checkDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "statushawk_check_duration_seconds",
		Help:    "Duration of subject checks in seconds",
		Buckets: prometheus.DefBuckets,
	})

	c.activeChecks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "statushawk_active_checks",
		Help: "Number of currently active subject checks",
	})

	c.queueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "statushawk_queue_size",
		Help: "Number of subjects waiting to be checked",
	})

	c.workersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "statushawk_workers_active",
		Help: "Number of active worker goroutines",
	})

	c.verdictsPerSource = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statushawk_verdicts_per_source_total",
			Help: "Total number of verdicts per deciding probe",
		},
		[]string{"source"},
	)

	c.errorsPerType = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statushawk_errors_per_type_total",
			Help: "Total number of errors per error type",
		},
		[]string{"error_type"},
	)
}

func (c *Collector) registerMetrics() {
	c.registry.MustRegister(
		c.subjectsChecked,
		c.subjectsUp,
		c.subjectsDown,
		c.checksErrors,
		c.checkDuration,
		c.activeChecks,
		c.queueSize,
		c.workersActive,
		c.verdictsPerSource,
		c.errorsPerType,
	)
}

// StartServer starts the metrics HTTP server
func (c *Collector) StartServer(addr string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.server != nil {
		return fmt.Errorf("metrics server already running")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	c.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		server := c.server
		if server != nil {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				// Metrics exposition is best-effort; the checks keep running.
			}
		}
	}()

	return nil
}

// StopServer stops the metrics HTTP server
func (c *Collector) StopServer() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.server.Shutdown(ctx)
	c.server = nil
	return err
}

// RecordVerdict records a completed subject check.
func (c *Collector) RecordVerdict(st *status.Status) {
	c.subjectsChecked.Inc()
	c.checkDuration.Observe(st.Duration)
	c.verdictsPerSource.WithLabelValues(st.StatusSource).Inc()

	if st.IsUp() {
		c.subjectsUp.Inc()
	} else {
		c.subjectsDown.Inc()
	}
}

// RecordError records an error by type
func (c *Collector) RecordError(errorType string) {
	c.checksErrors.Inc()
	c.errorsPerType.WithLabelValues(errorType).Inc()
}

// SetActiveChecks updates the active checks gauge
func (c *Collector) SetActiveChecks(count int) {
	c.activeChecks.Set(float64(count))
}

// SetQueueSize updates the queue size gauge
func (c *Collector) SetQueueSize(size int) {
	c.queueSize.Set(float64(size))
}

// SetWorkersActive updates the active workers gauge
func (c *Collector) SetWorkersActive(count int) {
	c.workersActive.Set(float64(count))
}

// GetRegistry returns the Prometheus registry for external use
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// GetMetricsHandler returns an HTTP handler for the /metrics endpoint
func (c *Collector) GetMetricsHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
