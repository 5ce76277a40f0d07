package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/kbukum/streamgate/logger"
)

var quietPaths = map[string]bool{
	"/":       true,
	"/health": true,
	"/info":   true,
}

// RequestLogger logs each request with method, path, status, bytes and
// duration. Probe paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			fields := map[string]interface{}{
				logger.FieldMethod:       r.Method,
				logger.FieldPath:         r.URL.Path,
				"status":                 sw.status,
				logger.FieldBytesWritten: sw.written,
				logger.FieldDuration:     time.Since(start).Milliseconds(),
				logger.FieldClientIP:     clientIP(r),
			}
			logByStatus(log.WithContext(r.Context()), fields, sw.status)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Info("Request completed", fields)
	}
}
