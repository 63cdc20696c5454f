package transfer

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    metricStarted = promauto.NewCounter(prometheus.CounterOpts{
        Name: "transfer_workflows_total",
        Help: "Transfer workflows started",
    })

    metricAttempts = promauto.NewCounter(prometheus.CounterOpts{
        Name: "transfer_attempts_total",
        Help: "Telephony transfer attempts, including retries",
    })

    metricSucceeded = promauto.NewCounter(prometheus.CounterOpts{
        Name: "transfer_success_total",
        Help: "Participants handed off to telephony",
    })

    metricFailed = promauto.NewCounter(prometheus.CounterOpts{
        Name: "transfer_failures_total",
        Help: "Workflows that ended with the spoken fallback",
    })
)
