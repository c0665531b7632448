// Package metrics exposes Prometheus collectors for okr activity.
package metrics

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/colonyops/okr/internal/core/eventbus"
)

const namespace = "okr"

// Metrics holds every collector. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	events        *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	checkIns      *prometheus.CounterVec
	periodsMissed *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	wsClients     prometheus.Gauge
	objectives    prometheus.Gauge
	keyResults    prometheus.Gauge
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the Metrics registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNewMetrics constructs Metrics on reg, reusing collectors that are
// already registered under the same name. Any other registration error
// panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Metrics{
		events: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_total",
			Help:      "Events dispatched on the in-process bus.",
		}, []string{"event"})),
		dropped: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_dropped_total",
			Help:      "Events dropped because the bus buffer was full.",
		}, []string{"event"})),
		checkIns: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkins_total",
			Help:      "Recorded check-ins, by whether they moved the current value.",
		}, []string{"adopted"})),
		periodsMissed: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "periods_missed_total",
			Help:      "Elapsed periods reported as missed, by classification.",
		}, []string{"classification"})),
		cacheLookups: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "cache_lookups_total",
			Help:      "Progress cache lookups, by result.",
		}, []string{"result"})),
		httpDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"})),
		wsClients: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected websocket clients.",
		})),
		objectives: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "objectives",
			Help:      "Objectives currently tracked.",
		})),
		keyResults: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "key_results",
			Help:      "Key results currently tracked.",
		})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RegisterBus counts bus traffic and derives check-in and missed-period
// counters from their events.
func (m *Metrics) RegisterBus(bus *eventbus.EventBus) {
	if m == nil || bus == nil {
		return
	}

	bus.SubscribeAll(func(e eventbus.Event, _ any) {
		m.events.WithLabelValues(string(e)).Inc()
	})
	bus.OnDrop(func(e eventbus.Event, _ any) {
		m.dropped.WithLabelValues(string(e)).Inc()
	})
	bus.SubscribeKeyResultCheckedIn(func(p eventbus.KeyResultCheckedInPayload) {
		m.checkIns.WithLabelValues(strconv.FormatBool(p.Adopted)).Inc()
	})
	bus.SubscribePeriodMissed(func(p eventbus.PeriodMissedPayload) {
		m.periodsMissed.WithLabelValues(string(p.Period.Classification)).Inc()
	})
}

// ObserveProgressCache records one progress cache lookup.
func (m *Metrics) ObserveProgressCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTP records the latency of one request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ClientConnected increments the websocket client gauge.
func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.wsClients.Inc()
}

// ClientDisconnected decrements the websocket client gauge.
func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.wsClients.Dec()
}

// SetInventory records how many objectives and key results are tracked.
func (m *Metrics) SetInventory(objectives, keyResults int) {
	if m == nil {
		return
	}
	m.objectives.Set(float64(objectives))
	m.keyResults.Set(float64(keyResults))
}
