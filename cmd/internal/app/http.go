package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authapi "beer/cmd/internal/auth/api"
	"beer/cmd/internal/realtime"
)

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	cfg Config,
	stores *Backends,
	reg *prometheus.Registry,
	gw *realtime.Gateway,
	auth *authapi.Handler,
) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireDB && !stores.Persistent() {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := stores.Ready(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			log.Info("readyz.not_ready", "kind", stores.Kind, "err", err)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	auth.Register(mux)

	// Viewers may be anonymous; the room never looks at sessions.
	var connect http.Handler = http.HandlerFunc(gw.HandleConnect)
	if cfg.WSRequireSession {
		connect = auth.RequireSession(connect)
	}
	mux.Handle("GET /event/{eventId}", connect)
	mux.HandleFunc("POST /event/{eventId}", gw.HandleTrigger)
}
