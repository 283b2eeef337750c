package metrics

import (
	"net/http"
	"time"
)

// unmatchedRoute labels requests that no route claimed.
const unmatchedRoute = "other"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// RouteLabel returns a label func that reports the mux pattern a request
// matches, so path parameters like run ids never become label values.
func RouteLabel(mux *http.ServeMux) func(*http.Request) string {
	return func(r *http.Request) string {
		if _, pattern := mux.Handler(r); pattern != "" {
			return pattern
		}
		return unmatchedRoute
	}
}

// HTTPMiddleware records request count, latency and the in-flight gauge.
// A nil label uses the raw URL path.
func HTTPMiddleware(reg *Registry, label func(*http.Request) string) func(http.Handler) http.Handler {
	if label == nil {
		label = func(r *http.Request) string { return r.URL.Path }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.InFlightInc()
			defer reg.InFlightDec()

			route := label(r)
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			reg.RecordRequest(r.Method, route, rec.status, time.Since(start).Seconds())
		})
	}
}
