package httpapi

import (
	"net/http"
	"strings"
	"time"

	"pkt.systems/frontline/internal/logx"
	"pkt.systems/frontline/schema"
)

type responseRecorder struct {
	status int
	bytes  int64
	writer http.ResponseWriter
}

func (r *responseRecorder) Header() http.Header {
	return r.writer.Header()
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.writer.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.writer.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *responseRecorder) Flush() {
	if f, ok := r.writer.(http.Flusher); ok {
		f.Flush()
	}
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{writer: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		path := r.URL.Path
		if r.URL.RawQuery != "" {
			path = path + "?" + r.URL.RawQuery
		}
		logger := logx.WithView(r.Context(), requestView(r.URL.Path)).With("remote", clientIP(r))
		logger.Info("http request", "method", r.Method, "path", path, "route", requestRoute(r.URL.Path), "status", status, "bytes", rec.bytes, "duration_ms", time.Since(start).Milliseconds())
		logger.Debug("http request details", "ua", r.UserAgent())
	})
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	return r.RemoteAddr
}

// requestView returns the view addressed by a /api/views/{id} path, or 0.
func requestView(path string) schema.ViewID {
	rest, ok := strings.CutPrefix(path, "/api/views/")
	if !ok {
		return 0
	}
	id, _, _ := strings.Cut(rest, "/")
	viewID, err := schema.ParseViewID(id)
	if err != nil {
		return 0
	}
	return viewID
}

// requestRoute names the endpoint with the view id elided so request logs
// group by route.
func requestRoute(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/views/")
	if !ok || rest == "" {
		return path
	}
	if _, sub, found := strings.Cut(rest, "/"); found {
		return "/api/views/{id}/" + sub
	}
	return "/api/views/{id}"
}
