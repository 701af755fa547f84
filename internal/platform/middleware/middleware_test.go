package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardgate/internal/platform/clientinfo"
)

func TestLoggerAnonymizesClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		wantIP    string
	}{
		{name: "ipv4 truncated to /24", forwarded: "203.0.113.77", wantIP: "203.0.113.0"},
		{name: "ipv6 truncated to /48", forwarded: "2001:db8:85a3::8a2e:370:7334", wantIP: "2001:0db8:85a3::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
			// Same nesting as the router: client info resolves before the
			// request is logged.
			handler := clientinfo.Middleware(Logger(logger)(inner))

			req := httptest.NewRequest(http.MethodGet, "/v1/ratelimit/status", nil)
			req.Header.Set("X-Forwarded-For", tt.forwarded)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantIP, entry["client_ip"])
			assert.NotContains(t, buf.String(), tt.forwarded, "raw address must not be logged")
			assert.Equal(t, float64(http.StatusNoContent), entry["status"])
		})
	}
}

func TestLoggerWithoutClientInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = ""
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "unknown", entry["client_ip"])
}
