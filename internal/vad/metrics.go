package vad

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    metricStarts = promauto.NewCounter(prometheus.CounterOpts{
        Name: "vad_speech_starts_total",
        Help: "Speech start events detected",
    })

    metricEnds = promauto.NewCounter(prometheus.CounterOpts{
        Name: "vad_speech_ends_total",
        Help: "Speech end events detected",
    })
)
