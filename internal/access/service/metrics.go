package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wardgate_access_decisions_total",
		Help: "Access decisions by action and outcome",
	}, []string{"action", "outcome"})

	verifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wardgate_access_verify_duration_seconds",
		Help:    "End-to-end latency of access verification",
		Buckets: prometheus.DefBuckets,
	})
)
