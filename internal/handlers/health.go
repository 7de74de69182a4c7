package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/go-gstbooks/httpx"
)

// Pinger reports whether the storage backend is reachable.
type Pinger func(ctx context.Context) error

// Health handles GET /healthz. A nil ping always reports ok.
func Health(ping Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
