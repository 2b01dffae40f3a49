package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qwizme_auth_login_attempts_total",
			Help: "Login attempts, by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qwizme_auth_registrations_total",
		Help: "Self-service registrations.",
	})

	onboardingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qwizme_onboarding_transitions_total",
			Help: "Onboarding step transitions, by step reached.",
		},
		[]string{"step"},
	)

	notificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qwizme_auth_notification_failures_total",
			Help: "Account emails that could not be delivered, by kind.",
		},
		[]string{"kind"},
	)
)
