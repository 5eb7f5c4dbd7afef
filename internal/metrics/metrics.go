// Package metrics declares the Prometheus collectors the admin exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SnippetMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "snippets", Name: "mutations_total", Help: "Snippet writes by content type and action."},
		[]string{"content_type", "action"},
	)
	FormRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "snippets", Name: "form_rejections_total", Help: "Submitted snippet forms that failed validation."},
		[]string{"content_type", "action"},
	)
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "snippets", Name: "login_attempts_total", Help: "Admin sign-in attempts by method and outcome."},
		[]string{"method", "outcome"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "snippets", Name: "rate_limit_rejected_total", Help: "Requests rejected by a rate limiter."},
		[]string{"limiter"},
	)
)

// RegisterCollectors adds every collector to reg.
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(SnippetMutations)
	reg.MustRegister(FormRejections)
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(RateLimitRejected)
}
