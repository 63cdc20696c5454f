package orchestrator

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    metricSessions = promauto.NewCounter(prometheus.CounterOpts{
        Name: "orchestrator_sessions_total",
        Help: "Call sessions started",
    })

    metricSessionFailures = promauto.NewCounter(prometheus.CounterOpts{
        Name: "orchestrator_session_failures_total",
        Help: "Sessions ended by a fatal error",
    })

    metricTransfers = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "orchestrator_transfers_total",
        Help: "Transfer workflows run from tool calls",
    }, []string{"result"})
)
