package pipeline

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    metricTurns = promauto.NewCounter(prometheus.CounterOpts{
        Name: "pipeline_turns_total",
        Help: "Completed conversational turns",
    })

    metricNoopTurns = promauto.NewCounter(prometheus.CounterOpts{
        Name: "pipeline_noop_turns_total",
        Help: "Turns closed with no usable transcript",
    })

    metricBargeIns = promauto.NewCounter(prometheus.CounterOpts{
        Name: "pipeline_barge_ins_total",
        Help: "Playback cancellations triggered by caller speech",
    })

    metricProviderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "pipeline_provider_failures_total",
        Help: "Engine failures recovered with a spoken apology",
    }, []string{"stage"})

    metricStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "pipeline_state_transitions_total",
        Help: "Turn pipeline state transitions",
    }, []string{"from", "to"})

    metricTurnCloseMS = promauto.NewHistogram(prometheus.HistogramOpts{
        Name:    "pipeline_turn_close_ms",
        Help:    "Time from listening start to turn closure",
        Buckets: prometheus.ExponentialBuckets(100, 1.6, 10),
    })
)
