package verification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	codesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qwizme_verification_codes_issued_total",
			Help: "Verification codes issued, by purpose.",
		},
		[]string{"purpose"},
	)

	codeChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qwizme_verification_code_checks_total",
			Help: "Verification code checks, by purpose and outcome.",
		},
		[]string{"purpose", "outcome"},
	)
)
