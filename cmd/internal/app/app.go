// Package app wires the beer refresh service: config, logging, stores,
// HTTP routes and the event rooms.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	authapi "beer/cmd/internal/auth/api"
	"beer/cmd/internal/auth/session"
	"beer/cmd/internal/realtime"
	"beer/cmd/security/password"
)

// App owns the HTTP server wiring and the realtime router.
type App struct {
	cfg Config
	log Logger

	stores   *Backends
	registry *prometheus.Registry
	router   *realtime.Router
	sessions *session.Service
	auth     *authapi.Handler

	handler http.Handler
}

// New constructs a fully wired App from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	codec, err := ValidateSecurityConfig(cfg, sessCfg.SecretBytes)
	if err != nil {
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	rtCfg, err := realtimeConfig(cfg)
	if err != nil {
		return nil, err
	}
	authCfg, err := authConfig(cfg)
	if err != nil {
		return nil, err
	}
	if rtCfg.TriggerSecret == "" {
		log.Warn("security.api_key.missing", "effect", "every refresh trigger is rejected")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rtMetrics, err := realtime.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	sessMetrics, err := session.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	stores, err := OpenBackends(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	sessions := session.NewService(sessCfg, stores.Sessions, codec,
		session.WithLogger(log),
		session.WithMetrics(sessMetrics),
	)

	auth, err := authapi.NewHandler(log, authCfg, sessions, stores.Users, pwCfg)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}

	router := realtime.NewRouter(log, rtCfg, rtMetrics)
	gw := realtime.NewGateway(log, router, stores.Events, rtCfg)

	mux := http.NewServeMux()
	registerHTTP(mux, log, cfg, stores, reg, gw, auth)

	var h http.Handler = auth.Middleware(mux)
	h = WithCORS(h, cfg, log)
	h = WithRequestLogging(h, log)
	h = WithSecurityHeaders(h)

	return &App{
		cfg:      cfg,
		log:      log,
		stores:   stores,
		registry: reg,
		router:   router,
		sessions: sessions,
		auth:     auth,
		handler:  h,
	}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Backends exposes the opened stores (used by the admin commands).
func (a *App) Backends() *Backends { return a.stores }

// Close releases store handles. Run calls it on shutdown.
func (a *App) Close() error { return a.stores.Close() }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go a.router.RunJanitor(janitorCtx, a.cfg.WSEvictInterval)

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "backend", a.stores.Kind)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.Close(); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func realtimeConfig(cfg Config) (realtime.Config, error) {
	rc := realtime.DefaultConfig()
	rc.TriggerSecret = cfg.APIKey
	rc.AllowedOrigins = cfg.WSAllowedOrigins
	rc.OriginRequired = cfg.WSOriginRequired
	rc.DevInsecure = cfg.WSDevInsecure
	rc.SendTimeout = nonZeroDuration(cfg.WSSendTimeout, rc.SendTimeout)
	rc.FanoutLimit = nonZeroInt(cfg.WSFanoutLimit, rc.FanoutLimit)
	rc.HeartbeatInterval = nonZeroDuration(cfg.WSHeartbeat, rc.HeartbeatInterval)
	rc.HeartbeatTimeout = nonZeroDuration(cfg.WSHeartbeatWithin, rc.HeartbeatTimeout)
	rc.EvictInterval = cfg.WSEvictInterval
	if err := rc.Validate(); err != nil {
		return realtime.Config{}, err
	}
	return rc, nil
}

func authConfig(cfg Config) (authapi.Config, error) {
	ac := authapi.DefaultConfig()
	ac.CookieDomain = cfg.CookieDomain
	ac.CookieSecure = cfg.CookieSecure
	ac.TrustProxy = cfg.TrustProxy

	sameSite, err := authapi.ParseSameSite(cfg.CookieSameSite)
	if err != nil {
		return authapi.Config{}, err
	}
	ac.CookieSameSite = sameSite
	if err := ac.Validate(); err != nil {
		return authapi.Config{}, err
	}
	return ac, nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
