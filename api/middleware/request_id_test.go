package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestIDEchoesSafeHeader(t *testing.T) {
	var seen string
	h := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requirements", nil)
	req.Header.Set(requestIDHeader, "edge-01.abc_9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "edge-01.abc_9", seen)
	assert.Equal(t, "edge-01.abc_9", rec.Header().Get(requestIDHeader))
}

func TestRequestIDReplacesUnsafeHeader(t *testing.T) {
	cases := map[string]string{
		"missing":   "",
		"injection": "abc\r\nSet-Cookie: x=1",
		"too long":  strings.Repeat("a", maxRequestIDBytes+1),
		"spaces":    "has space",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			var seen string
			h := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header[requestIDHeader] = []string{header}
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			_, err := uuid.Parse(seen)
			assert.NoError(t, err, "expected a generated uuid, got %q", seen)
			assert.Equal(t, seen, rec.Header().Get(requestIDHeader))
		})
	}
}
