package llm

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    metricTTFT = promauto.NewHistogram(prometheus.HistogramOpts{
        Name:    "llm_time_to_first_token_ms",
        Help:    "Latency from request start to first streamed token",
        Buckets: prometheus.ExponentialBuckets(50, 1.6, 10),
    })

    metricToolCalls = promauto.NewCounter(prometheus.CounterOpts{
        Name: "llm_tool_calls_total",
        Help: "Responses that designated a tool invocation",
    })
)
