package trace

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// maxIncomingIDLen bounds ids accepted from clients.
const maxIncomingIDLen = 64

type contextKey struct{}

// Middleware assigns every request an id and keeps request counters.
type Middleware struct {
	metrics Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests int64
	InFlight      int64
	// TotalDurationMicros is the summed handling time of finished requests.
	TotalDurationMicros int64
}

// AverageDuration returns the mean handling time of finished requests.
func (m Metrics) AverageDuration() time.Duration {
	done := m.TotalRequests - m.InFlight
	if done <= 0 {
		return 0
	}
	return time.Duration(m.TotalDurationMicros/done) * time.Microsecond
}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// Handler tags the request context with an id, echoes it in the response
// header and records timing.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&m.metrics.TotalRequests, 1)
		atomic.AddInt64(&m.metrics.InFlight, 1)
		defer func() {
			atomic.AddInt64(&m.metrics.InFlight, -1)
			atomic.AddInt64(&m.metrics.TotalDurationMicros, time.Since(start).Microseconds())
		}()

		id := incomingID(r)
		if id == "" {
			id = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

func incomingID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
	if len(id) > maxIncomingIDLen {
		return ""
	}
	for _, c := range id {
		if !(c == '-' || c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return ""
		}
	}
	return id
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// FromRequest is GetRequestID for callers that only hold the request.
func FromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       atomic.LoadInt64(&m.metrics.TotalRequests),
		InFlight:            atomic.LoadInt64(&m.metrics.InFlight),
		TotalDurationMicros: atomic.LoadInt64(&m.metrics.TotalDurationMicros),
	}
}
