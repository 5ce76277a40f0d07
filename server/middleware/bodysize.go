package middleware

import (
	"net/http"

	"github.com/kbukum/streamgate/util"
)

// DefaultMaxBodySize bounds a request body when no limit is configured.
// It must fit one upload part plus multipart framing.
const DefaultMaxBodySize = 64 * util.MiB

// BodySizeLimit caps request bodies at maxSize ("64MB", "512KB").
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, DefaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, size)
			}
			next.ServeHTTP(w, r)
		})
	}
}
