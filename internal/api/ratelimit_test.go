package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuota(t *testing.T) {
	tests := []struct {
		raw    string
		want    Quota
		wantErr bool
	}{
		{raw: "5/minute", want: Quota{Requests: 5, Window: time.Minute}},
		{raw: "100/hour", want: Quota{Requests: 100, Window: time.Hour}},
		{raw: " 3 / Minutes ", want: Quota{Requests: 3, Window: time.Minute}},
		{raw: "1/second", want: Quota{Requests: 1, Window: time.Second}},
		{raw: "10/day", want: Quota{Requests: 10, Window: 24 * time.Hour}},
		{raw: "5", wantErr: true},
		{raw: "0/minute", wantErr: true},
		{raw: "x/minute", wantErr: true},
		{raw: "5/fortnight", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseQuota(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuota)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuotas_AllParse(t *testing.T) {
	for route, raw := range Quotas {
		_, err := ParseQuota(raw)
		assert.NoError(t, err, route)
	}
}

func TestLimiter_For(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r := chi.NewRouter()
	r.With(NewLimiter(false).For(AuthForgotPassword)).Post("/forgot", ok)
	r.With(NewLimiter(true).For(AuthForgotPassword)).Post("/unlimited", ok)

	send := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send("/forgot"))
	}
	assert.Equal(t, http.StatusTooManyRequests, send("/forgot"))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, send("/unlimited"))
	}
}
