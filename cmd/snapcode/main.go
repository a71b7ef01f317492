package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Theadedamola/snapcode-backend/internal/auth/oauth"
	"github.com/Theadedamola/snapcode-backend/internal/auth/provider"
	authrest "github.com/Theadedamola/snapcode-backend/internal/auth/rest"
	authservice "github.com/Theadedamola/snapcode-backend/internal/auth/service"
	"github.com/Theadedamola/snapcode-backend/internal/auth/session"
	"github.com/Theadedamola/snapcode-backend/internal/auth/token"
	"github.com/Theadedamola/snapcode-backend/internal/blob"
	"github.com/Theadedamola/snapcode-backend/internal/config"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/httpx"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/metrics"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/middleware"
	"github.com/Theadedamola/snapcode-backend/internal/pkg/router"
	"github.com/Theadedamola/snapcode-backend/internal/render"
	"github.com/Theadedamola/snapcode-backend/internal/store"
	studiorest "github.com/Theadedamola/snapcode-backend/internal/studio/rest"
	studioservice "github.com/Theadedamola/snapcode-backend/internal/studio/service"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func run(ctx context.Context) error {
	slog.Info("starting snapcode backend")

	// absent .env is fine, the environment may be set directly
	_ = godotenv.Load()

	cfg := config.FromEnv()
	if cfg.DevMode {
		httpx.EnableDevMode()
	}

	db, err := store.NewPostgresDB(store.PostgresConfig{
		Host:     cfg.DB.Host,
		Port:     strconv.Itoa(cfg.DB.Port),
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DB:       cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer db.Close()

	pgs := store.NewPostgresStore(db)

	sessions, closeSessions := newSessionStore(cfg)
	defer closeSessions()

	auth := oauth.NewAuthenticator()
	if err := registerProviders(ctx, auth, cfg); err != nil {
		return fmt.Errorf("failed to register oauth providers: %w", err)
	}

	codec := token.NewCodec(token.CodecConfig{
		Secret:     token.NewSecretString(cfg.JWT.Secret),
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	authSrv := authservice.NewAuth(
		authservice.WithAuthenticator(auth),
		authservice.WithStore(pgs),
		authservice.WithSessions(sessions),
		authservice.WithCodec(codec),
		authservice.WithClientURL(cfg.ClientURL),
		authservice.WithMetrics(collector),
	)

	blobs, err := blob.NewDiskStore(cfg.Blob.Root)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	exportsSrv := studioservice.NewExports(
		studioservice.WithExportStore(pgs),
		studioservice.WithRenderer(render.NewHTTPRenderer(render.HTTPRendererConfig{
			URL:     cfg.Render.URL,
			Timeout: cfg.Render.Timeout,
		})),
		studioservice.WithBlobs(blobs),
		studioservice.WithExportMetrics(collector),
		studioservice.WithRenderCache(1024, 64<<20),
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer limiter.Stop()

	gate := middleware.Auth(codec, pgs)

	r := router.New()
	r.Use(
		middleware.Recover(),
		middleware.Log(),
		middleware.CORS(cfg.ClientURL),
		middleware.SecurityHeaders(),
		collector.Middleware(),
		limiter.Middleware(),
	)

	r.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("GET /metrics", metrics.Handler(reg))

	api := r.SubRouter("/api")
	api.Handle("/auth/", http.StripPrefix("/auth", authrest.NewAPI(authSrv, gate)))

	studioAPI := studiorest.NewAPI(
		studioservice.NewProjects(pgs),
		studioservice.NewSnippets(pgs),
		exportsSrv,
	)
	api.Handle("/", gate(studioAPI))

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.ListenAddr,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Handler:      r,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newSessionStore picks redis when configured so refresh tokens survive
// restarts, falling back to the in-process store otherwise.
func newSessionStore(cfg config.Config) (session.Store, func()) {
	if cfg.Redis.Addr == "" {
		slog.Info("using in-memory refresh token store")
		return session.NewMemoryStore(), func() {}
	}

	slog.Info("using redis refresh token store", "addr", cfg.Redis.Addr)
	rs := session.NewRedisStore(session.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return rs, func() { _ = rs.Close() }
}

func registerProviders(ctx context.Context, auth *oauth.Authenticator, cfg config.Config) error {
	prvGoogle, err := provider.NewGoogle(ctx, provider.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create google oauth provider: %w", err)
	}

	if err := auth.Use("google", prvGoogle); err != nil {
		return fmt.Errorf("failed to register google provider: %w", err)
	}

	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("snapcode backend terminated with error", "error", err)
		os.Exit(1)
	}
}
