package race

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "burnreg",
		Subsystem: "race",
		Name:      "attempts_total",
		Help:      "Number of registration attempts by outcome",
	}, []string{"outcome"})

	cyclesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "burnreg",
		Subsystem: "race",
		Name:      "cycles_total",
		Help:      "Number of raced windows",
	})

	winsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "burnreg",
		Subsystem: "race",
		Name:      "wins_total",
		Help:      "Number of confirmed registrations",
	})

	fireDelayMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "burnreg",
		Subsystem: "race",
		Name:      "fire_delay_seconds",
		Help:      "Delay between a slot's launch time and the start of its submission",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
	})

	pollFailuresMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "burnreg",
		Subsystem: "race",
		Name:      "membership_poll_failures_total",
		Help:      "Number of failed membership queries",
	})
)
