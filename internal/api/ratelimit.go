package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
)

var ErrInvalidQuota = errors.New("invalid rate quota")

type Quota struct {
	Requests int
	Window   time.Duration
}

var periods = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseQuota parses quotas such as "5/minute" or "100/hour". Plural period
// names are accepted.
func ParseQuota(raw string) (Quota, error) {
	count, period, ok := strings.Cut(strings.TrimSpace(raw), "/")
	if !ok {
		return Quota{}, fmt.Errorf("%w: %q", ErrInvalidQuota, raw)
	}

	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n <= 0 {
		return Quota{}, fmt.Errorf("%w: %q", ErrInvalidQuota, raw)
	}

	period = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(period)), "s")
	window, ok := periods[period]
	if !ok {
		return Quota{}, fmt.Errorf("%w: %q", ErrInvalidQuota, raw)
	}
	return Quota{Requests: n, Window: window}, nil
}

// Limiter builds per-route rate limit middleware keyed by client IP.
type Limiter struct {
	disabled bool
}

func NewLimiter(disabled bool) *Limiter {
	return &Limiter{disabled: disabled}
}

// For returns the middleware for route. Routes without a quota pass
// through. An unparsable quota is a programming error.
func (l *Limiter) For(route string) func(http.Handler) http.Handler {
	raw, ok := Quotas[route]
	if l.disabled || !ok {
		return func(next http.Handler) http.Handler { return next }
	}

	quota, err := ParseQuota(raw)
	if err != nil {
		panic(err)
	}
	return httprate.Limit(
		quota.Requests,
		quota.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(tooManyRequests),
	)
}

func tooManyRequests(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Rate limit exceeded"})
}
