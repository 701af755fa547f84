package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wardgate_ratelimit_checks_total",
		Help: "Rate limit checks by scope and outcome",
	}, []string{"scope", "outcome"})

	suspiciousTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wardgate_ratelimit_suspicious_events_total",
		Help: "Suspicious activity events recorded",
	})

	blocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wardgate_ratelimit_blocks_imposed_total",
		Help: "Identifier blocks imposed after repeated suspicious activity",
	})
)

const (
	outcomeAllowed = "allowed"
	outcomeDenied  = "denied"
	outcomeBlocked = "blocked"
	outcomeError   = "error"
)
