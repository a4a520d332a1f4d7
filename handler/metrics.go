package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "tgform"
	subsystem = "handler"
)

var (
	sessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_started_total",
			Help:      "Total number of form sessions started",
		},
		[]string{"form"},
	)

	sessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_finished_total",
			Help:      "Total number of form sessions finished by outcome",
		},
		[]string{"form", "outcome"},
	)

	fieldRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "field_rejections_total",
			Help:      "Total number of answers rejected by a field",
		},
		[]string{"form", "field"},
	)

	internalErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "internal_errors_total",
			Help:      "Total number of sessions cancelled by an unexpected error",
		},
		[]string{"form"},
	)
)
