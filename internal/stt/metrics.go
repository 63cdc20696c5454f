package stt

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    metricConnectMS = promauto.NewHistogram(prometheus.HistogramOpts{
        Name:    "stt_connect_ms",
        Help:    "Time to establish the recognizer websocket",
        Buckets: prometheus.ExponentialBuckets(10, 1.6, 10),
    })

    metricReconnects = promauto.NewCounter(prometheus.CounterOpts{
        Name: "stt_reconnects_total",
        Help: "Recognizer websocket connections established",
    })

    metricCircuitOpens = promauto.NewCounter(prometheus.CounterOpts{
        Name: "stt_circuit_opens_total",
        Help: "Recognizer circuit breaker openings",
    })

    metricFinals = promauto.NewCounter(prometheus.CounterOpts{
        Name: "stt_finals_total",
        Help: "Final transcripts emitted",
    })

    metricDrops = promauto.NewCounter(prometheus.CounterOpts{
        Name: "stt_dropped_frames_total",
        Help: "Audio frames dropped under send-queue pressure",
    })

    metricAudioBytes = promauto.NewCounter(prometheus.CounterOpts{
        Name: "stt_audio_bytes_total",
        Help: "Audio bytes forwarded to the recognizer",
    })
)
