// Package metrics maintains the prometheus collectors exposed on the debug
// endpoint of the node.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "utxochain"

// Ledger is the behavior required to report the ledger gauges.
type Ledger interface {
	ChainLength() int
	MempoolLength() int
	UTXOCount() int
}

// Metrics holds the collectors for the web layer and the ledger.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	errors   prometheus.Counter
	panics   prometheus.Counter
	latency  prometheus.Histogram
}

// New constructs the collectors and registers them along with the go runtime
// and process collectors.
func New() *Metrics {
	m := Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of requests handled, by status code.",
		}, []string{"code"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Number of requests that returned an error.",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_panics_total",
			Help:      "Number of handler panics recovered.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time spent handling requests.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.errors,
		m.panics,
		m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &m
}

// RegisterLedger adds gauges reading the ledger on every scrape.
func (m *Metrics) RegisterLedger(ledger Ledger) {
	gauge := func(name string, help string, fn func() int) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(fn()) })
	}

	m.registry.MustRegister(
		gauge("chain_blocks", "Number of blocks in the chain including genesis.", ledger.ChainLength),
		gauge("mempool_transactions", "Number of pending transactions.", ledger.MempoolLength),
		gauge("utxo_count", "Number of unspent outputs.", ledger.UTXOCount),
	)
}

// RegisterCounter adds a counter reading its value from fn on every scrape.
func (m *Metrics) RegisterCounter(name string, help string, fn func() uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(fn()) }))
}

// Request records a handled request.
func (m *Metrics) Request(statusCode int, took time.Duration) {
	m.requests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	m.latency.Observe(took.Seconds())
}

// Error records a request that returned an error.
func (m *Metrics) Error() {
	m.errors.Inc()
}

// Panic records a recovered panic.
func (m *Metrics) Panic() {
	m.panics.Inc()
}

// Handler returns the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
