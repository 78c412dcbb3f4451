package prometheus

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taliolabs/hookline/hooks"
)

const (
	// defaultReadHeaderTimeout bounds header reads on the scrape endpoint.
	defaultReadHeaderTimeout = 10 * time.Second
)

// Exporter serves the hookline collectors to a Prometheus scraper. The
// typical wiring is one Exporter per process: construct it, Instrument the
// hook registry so lifecycle events feed the collectors, build the registry
// with Observe for per-dispatch metrics, and run Start in a goroutine.
//
//	exporter := prometheus.NewExporter(":9090")
//	reg := hooks.NewRegistry(exporter.Observe())
//	exporter.Instrument(reg)
//	go exporter.Start()
type Exporter struct {
	addr     string
	server   *http.Server
	registry *prometheus.Registry
	mu       sync.Mutex
	started  bool
}

// NewExporter creates an exporter at addr preloaded with the hookline
// collectors and the Go runtime/process collectors.
func NewExporter(addr string) *Exporter {
	reg := prometheus.NewRegistry()

	for _, collector := range allMetrics {
		reg.MustRegister(collector)
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Exporter{
		addr:     addr,
		registry: reg,
	}
}

// NewExporterWithRegistry creates an exporter serving a caller-provided
// registry. The hookline collectors are not auto-registered; use
// MustRegister with allMetrics-style collectors as needed.
func NewExporterWithRegistry(addr string, registry *prometheus.Registry) *Exporter {
	return &Exporter{
		addr:     addr,
		registry: registry,
	}
}

// Instrument attaches a MetricsListener to reg so lifecycle hook events
// (conversations, turns, tool calls, errors) feed the exporter's
// collectors. The listener is returned for hosts that want to register it
// on additional hook names themselves.
func (e *Exporter) Instrument(reg *hooks.Registry) *MetricsListener {
	listener := NewMetricsListener()
	listener.Attach(reg)
	return listener
}

// Observe returns a registry construction option that records a dispatch
// summary (handler count, panics, duration) for every Trigger, covering
// custom hook names the lifecycle listener never sees.
func (e *Exporter) Observe() hooks.Option {
	return hooks.WithObserver(Observer())
}

// Registry returns the underlying Prometheus registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Start serves /metrics and /health at the exporter's address. It blocks
// until the server stops, returning http.ErrServerClosed on graceful
// shutdown. Calling Start on a running exporter is a no-op.
func (e *Exporter) Start() error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		// A disconnected scraper leaves nothing actionable to do with
		// the write error.
		_, _ = w.Write([]byte("ok"))
	})

	e.server = &http.Server{
		Addr:              e.addr,
		Handler:           mux,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	e.started = true
	e.mu.Unlock()

	return e.server.ListenAndServe()
}

// Shutdown gracefully stops the exporter with the given context.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.server != nil && e.started {
		e.started = false
		return e.server.Shutdown(ctx)
	}
	return nil
}

// Handler returns the scrape handler for hosts that mount /metrics on
// their own HTTP server instead of calling Start.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// MustRegister registers additional collectors with the exporter's registry.
// Panics if registration fails.
func (e *Exporter) MustRegister(cs ...prometheus.Collector) {
	e.registry.MustRegister(cs...)
}

// Register registers additional collectors with the exporter's registry.
// Returns an error if registration fails.
func (e *Exporter) Register(c prometheus.Collector) error {
	return e.registry.Register(c)
}
