// Package metrics объявляет счётчики Prometheus сервиса подписок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "omawina"

var (
	// StatusTransitions считает записанные переходы статуса подписки.
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "subscription",
		Name:      "status_transitions_total",
		Help:      "Number of persisted subscription status transitions.",
	}, []string{"from", "to"})

	// Settlements считает попытки проведения платежей по результату:
	// settled, duplicate, unconfirmed, busy, error.
	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "settlements_total",
		Help:      "Number of payment settlement attempts by result.",
	}, []string{"result"})

	// Notifications считает уведомления по шаблону и результату публикации.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "published_total",
		Help:      "Number of notifications handed to the broker.",
	}, []string{"template", "result"})

	// HTTPRequestDuration время обработки HTTP-запросов.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "code"})
)
