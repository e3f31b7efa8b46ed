package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rps_sessions_active",
			Help: "Sessions currently registered",
		},
	)
	SessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_sessions_created_total",
			Help: "Total sessions created",
		},
	)
	RoundsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_rounds_resolved_total",
			Help: "Total rounds resolved, by outcome",
		},
		[]string{"result"},
	)
	Timeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_session_timeouts_total",
			Help: "Join and move deadlines that elapsed",
		},
		[]string{"kind"},
	)
	Disconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_disconnects_total",
			Help: "Transport-level disconnects observed",
		},
	)
)

func init() {
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(SessionsCreated)
	prometheus.MustRegister(RoundsResolved)
	prometheus.MustRegister(Timeouts)
	prometheus.MustRegister(Disconnects)
}
