package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, GetCorrelationID(c)+"|"+CorrelationIDFromContext(c.Request.Context()))
	})
	return r
}

func TestCorrelationIDIsPropagated(t *testing.T) {
	r := newEngine(CorrelationIDMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(CorrelationIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123|abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(CorrelationIDHeader))
}

func TestCorrelationIDIsGeneratedForBadInput(t *testing.T) {
	r := newEngine(CorrelationIDMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(CorrelationIDHeader, strings.Repeat("a", 200))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	id := w.Header().Get(CorrelationIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id+"|"+id, w.Body.String())
}

func TestMetricsToken(t *testing.T) {
	r := newEngine(MetricsTokenMiddleware("s3cret"))

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong", "X-Metrics-Token", "nope", http.StatusUnauthorized},
		{"header", "X-Metrics-Token", "s3cret", http.StatusOK},
		{"bearer", "Authorization", "Bearer s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestMetricsTokenDisabled(t *testing.T) {
	r := newEngine(MetricsTokenMiddleware(""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
