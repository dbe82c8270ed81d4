package middleware

import (
	"net/http"
	"time"

	"github.com/kagetora-io/clubledger-backend/pkg/logger"
)

// Requests slower than this are logged at warn level. Quote application and
// visit merges do several writes in one transaction and should stay well
// under it.
const slowRequestThreshold = 2 * time.Second

func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"method": r.Method,
					"path":   r.URL.Path,
					"remote": r.RemoteAddr,
				})
			}

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()

			if logg != nil {
				logg.Info(ctx, "request.start")
			}

			next.ServeHTTP(rec, r.WithContext(ctx))

			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			if logg != nil {
				elapsed := time.Since(start)
				ctx = logg.WithFields(ctx, map[string]any{
					"status":      rec.status,
					"duration_ms": elapsed.Milliseconds(),
				})
				if elapsed >= slowRequestThreshold {
					logg.Warn(ctx, "request.slow")
				} else {
					logg.Info(ctx, "request.complete")
				}
			}
		})
	}
}
