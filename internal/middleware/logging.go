package middleware

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wudi/pagecount/internal/logging"
	"github.com/wudi/pagecount/internal/metrics"
	"github.com/wudi/pagecount/variables"
)

// LoggingConfig configures the access log middleware
type LoggingConfig struct {
	// Format is the log format string with variables, used when JSON is false
	Format string
	// JSON emits one structured entry per request
	JSON bool
	// SkipPaths are paths that should not be logged
	SkipPaths []string
	// Metrics receives request counts and durations; may be nil
	Metrics *metrics.Collector
	// Quiet records metrics without emitting log lines
	Quiet bool
}

// DefaultLoggingConfig provides default logging settings
var DefaultLoggingConfig = LoggingConfig{
	Format: `$remote_addr - [$time_iso8601] "$request_method $request_uri" $status $body_bytes_sent "$http_user_agent" $response_time route=$route`,
}

// LoggingWithConfig creates a logging middleware with custom config. It
// must run outside the router so the dispatched route is known once the
// handler returns.
func LoggingWithConfig(cfg LoggingConfig) Middleware {
	if cfg.Format == "" {
		cfg.Format = DefaultLoggingConfig.Format
	}
	skipPaths := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skipPaths[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			r, varCtx := variables.Attach(r)
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(lrw, r)

			duration := time.Since(start)
			varCtx.Status = lrw.status
			varCtx.BodyBytesSent = lrw.bytes
			varCtx.ResponseTime = duration

			route, _ := varCtx.Route()
			cfg.Metrics.RecordRequest(route, r.Method, lrw.status, duration)

			if cfg.Quiet {
				return
			}
			if !cfg.JSON {
				logging.Info(variables.Resolve(cfg.Format, varCtx))
				return
			}

			fields := make([]zap.Field, 0, 10)
			fields = append(fields,
				zap.String("request_id", varCtx.RequestID),
				zap.String("remote_addr", variables.ExtractClientIP(r)),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", lrw.status),
				zap.Int64("body_bytes", lrw.bytes),
				zap.Duration("response_time", duration),
			)
			if r.URL.RawQuery != "" {
				fields = append(fields, zap.String("query", r.URL.RawQuery))
			}
			if route != "" {
				fields = append(fields, zap.String("route", route))
			}
			if ua := r.UserAgent(); ua != "" {
				fields = append(fields, zap.String("user_agent", ua))
			}
			logging.Info("HTTP request", fields...)
		})
	}
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and bytes
type loggingResponseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (lrw *loggingResponseWriter) WriteHeader(status int) {
	if !lrw.wroteHeader && status >= 200 {
		lrw.status = status
		lrw.wroteHeader = true
	}
	lrw.ResponseWriter.WriteHeader(status)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	lrw.wroteHeader = true
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytes += int64(n)
	return n, err
}

func (lrw *loggingResponseWriter) ReadFrom(src io.Reader) (int64, error) {
	lrw.wroteHeader = true
	n, err := io.Copy(lrw.ResponseWriter, src)
	lrw.bytes += n
	return n, err
}

// Flush implements http.Flusher
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := lrw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}
