package tts

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    metricFirstAudioMS = promauto.NewHistogram(prometheus.HistogramOpts{
        Name:    "tts_first_audio_ms",
        Help:    "Latency from synthesis start to first audio chunk",
        Buckets: prometheus.ExponentialBuckets(50, 1.6, 10),
    })

    metricSynthFailures = promauto.NewCounter(prometheus.CounterOpts{
        Name: "tts_failures_total",
        Help: "Synthesis attempts that failed",
    })
)
