// monitor/monitor.go
package monitor

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/turnserver/logger"
)

type Metrics struct {
	OnlinePlayers prometheus.Gauge
	ActiveRooms   prometheus.Gauge
	TurnsAdvanced prometheus.Counter
	TurnsExpired  prometheus.Counter
	RosterChanges *prometheus.CounterVec
	TurnDuration  prometheus.Histogram
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of players seated in rooms",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active rooms",
		}),
		TurnsAdvanced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_advanced_total",
			Help:      "Total number of turns handed to a player",
		}),
		TurnsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_expired_total",
			Help:      "Total number of turns that ran out of time",
		}),
		RosterChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_changes_total",
			Help:      "Players joining or leaving rooms",
		}, []string{"op"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time a player held the turn",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	reg.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.TurnsAdvanced,
		m.TurnsExpired,
		m.RosterChanges,
		m.TurnDuration,
	)

	return m
}

// Monitor is nil-safe: every recording method on a nil *Monitor is a no-op.
type Monitor struct {
	metrics  *Metrics
	registry *prometheus.Registry
	server   *http.Server
}

func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Monitor{
		metrics:  NewMetrics(namespace, reg),
		registry: reg,
	}
}

// Metrics exposes the collectors, mostly for tests.
func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr in the background.
func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Log.Infof("Metrics listening on %s", addr)
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("Metrics server stopped: %v", err)
		}
	}()
}

func (m *Monitor) Stop() {
	if m == nil || m.server == nil {
		return
	}
	_ = m.server.Close()
}

func (m *Monitor) PlayerJoined() {
	if m == nil {
		return
	}
	m.metrics.OnlinePlayers.Inc()
	m.metrics.RosterChanges.WithLabelValues("join").Inc()
}

func (m *Monitor) PlayerLeft() {
	if m == nil {
		return
	}
	m.metrics.OnlinePlayers.Dec()
	m.metrics.RosterChanges.WithLabelValues("leave").Inc()
}

// PlayersLeft takes n players off the online count at once, e.g. when a room closes.
func (m *Monitor) PlayersLeft(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.metrics.OnlinePlayers.Sub(float64(n))
}

func (m *Monitor) SetActiveRooms(count int) {
	if m == nil {
		return
	}
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) TurnAdvanced() {
	if m == nil {
		return
	}
	m.metrics.TurnsAdvanced.Inc()
}

func (m *Monitor) TurnExpired() {
	if m == nil {
		return
	}
	m.metrics.TurnsExpired.Inc()
}

func (m *Monitor) ObserveTurnDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.metrics.TurnDuration.Observe(d.Seconds())
}
