// internal/metrics/metrics.go
//
// Prometheus collectors for the game server, on a private registry so
// tests can build as many instances as they like.

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robalobadob/soup-server/internal/apperr"
	"github.com/robalobadob/soup-server/internal/oracle"
)

// Metrics implements game.Observer.
type Metrics struct {
	reg *prometheus.Registry

	gamesStarted prometheus.Counter
	gamesSolved  prometheus.Counter
	oracleCalls  *prometheus.CounterVec
	oracleTime   *prometheus.HistogramVec
	rejected     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		gamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soup_games_started_total",
			Help: "Games started, including restarts.",
		}),
		gamesSolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soup_games_solved_total",
			Help: "Games ended by a correct answer.",
		}),
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soup_oracle_calls_total",
			Help: "Judge calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		oracleTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "soup_oracle_call_seconds",
			Help:    "Judge call latency, retries included.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soup_commands_rejected_total",
			Help: "Submissions rejected before reaching the judge.",
		}, []string{"code"}),
	}
	m.reg.MustRegister(
		m.gamesStarted, m.gamesSolved, m.oracleCalls, m.oracleTime, m.rejected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) GameStarted() { m.gamesStarted.Inc() }

func (m *Metrics) GameSolved() { m.gamesSolved.Inc() }

func (m *Metrics) OracleCall(kind oracle.Kind, outcome string, took time.Duration) {
	m.oracleCalls.WithLabelValues(string(kind), outcome).Inc()
	m.oracleTime.WithLabelValues(string(kind)).Observe(took.Seconds())
}

func (m *Metrics) Rejected(code apperr.Code) {
	m.rejected.WithLabelValues(string(code)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
