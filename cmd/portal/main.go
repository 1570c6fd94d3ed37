package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hccommerce/portal/internal/cache"
	"github.com/hccommerce/portal/internal/config"
	"github.com/hccommerce/portal/internal/email"
	authctrl "github.com/hccommerce/portal/internal/http/controllers/auth"
	healthctrl "github.com/hccommerce/portal/internal/http/controllers/health"
	pagesctrl "github.com/hccommerce/portal/internal/http/controllers/pages"
	tiplinectrl "github.com/hccommerce/portal/internal/http/controllers/tipline"
	"github.com/hccommerce/portal/internal/http/router"
	authsvc "github.com/hccommerce/portal/internal/http/services/auth"
	"github.com/hccommerce/portal/internal/identity"
	"github.com/hccommerce/portal/internal/oauth/oidc"
	"github.com/hccommerce/portal/internal/observability/logger"
	"github.com/hccommerce/portal/internal/rate"
	"github.com/hccommerce/portal/internal/security/cookiebox"
	"github.com/hccommerce/portal/internal/session"
	"github.com/hccommerce/portal/internal/tipline"
	migrations "github.com/hccommerce/portal/migrations/postgres"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "portal",
		Short: "Portal de la oficina de comercio",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env es opcional; en prod todo viene del entorno real
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("PORTAL_CONFIG"), "Path al YAML de configuración (env PORTAL_CONFIG)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP del portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes y termina",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), configPath)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMigrate(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: "portal", Version: version})
	defer logger.Sync()

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := migrations.Run(ctx, pool)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.L().Info("migrations done", logger.Op("migrate"))
	fmt.Printf("applied %d migration(s)\n", n)
	return nil
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: "portal", Version: version})
	defer logger.Sync()
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- storage ----
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if _, err := migrations.Run(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	store := identity.NewPGStore(pool)

	// ---- cache / rate limiting ----
	cacheClient, err := cache.New(cache.Config{
		Driver: cfg.Cache.Kind,
		Addr:   cfg.Cache.Redis.Addr,
		DB:     cfg.Cache.Redis.DB,
		Prefix: cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cacheClient.Close()

	startLimiter := newLimiter(cacheClient, "rl:start", cfg.Rate.Start.Limit, cfg.Rate.Start.Window, cfg.Rate.Enabled)
	callbackLimiter := newLimiter(cacheClient, "rl:cb", cfg.Rate.Callback.Limit, cfg.Rate.Callback.Window, cfg.Rate.Enabled)
	tiplineLimiter := newLimiter(cacheClient, "rl:tip", cfg.Rate.Tipline.Limit, cfg.Rate.Tipline.Window, cfg.Rate.Enabled)

	// ---- sesión ----
	box, err := cookiebox.FromEnv()
	if err != nil {
		return err
	}
	transport := session.NewTransport(box, cfg.Auth.Session.CookieName, cfg.Auth.Session.Secure, parseSameSite(cfg.Auth.Session.SameSite))

	// ---- providers OIDC ----
	providers := make(map[string]*oidc.Client, len(cfg.Auth.RequiredProviders))
	for _, name := range cfg.Auth.RequiredProviders {
		pc, err := config.ResolveProvider(prefixedGetenv(name))
		if err != nil {
			// fail open: el portal arranca y los controllers responden
			// service_unavailable para el provider que falta
			log.Warn("provider not configured", logger.Provider(name), logger.Err(err))
			continue
		}
		providers[name] = oidc.New(name, *pc)
		log.Info("provider configured", logger.Provider(name))
	}

	// ---- services + controllers ----
	services := authsvc.NewServices(authsvc.Deps{
		Providers:         providers,
		Store:             store,
		Reconciler:        identity.NewLinkingReconciler(store),
		Transport:         transport,
		BaseURL:           cfg.App.BaseURL,
		DefaultRedirect:   cfg.Auth.DefaultRedirect,
		RequiredProviders: cfg.Auth.RequiredProviders,
		TxCookieName:      cfg.Auth.Transaction.CookieName,
		TxTTL:             cfg.Auth.Transaction.TTL,
		TxSecure:          cfg.Auth.Session.Secure,
	})

	var sender email.Sender
	if cfg.SMTP.Host != "" {
		s := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
		s.TLSMode = cfg.SMTP.TLS
		s.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		sender = s
	}
	tipSvc := tipline.NewService(tipline.NewPGStore(pool), sender, cfg.Tipline.NotifyTo)

	health := healthctrl.NewHealthController(version,
		healthctrl.Component{Name: "postgres", Pinger: store},
		healthctrl.Component{Name: "cache", Pinger: cacheClient},
	)

	handler := router.New(router.Deps{
		Auth: authctrl.NewControllers(authctrl.Deps{
			Services:  services,
			Transport: transport,
			LoginPath: cfg.Auth.LoginPath,
		}),
		Pages:             pagesctrl.NewController(services.Providers, cfg.Auth.LoginPath, cfg.Auth.DefaultRedirect),
		Tipline:           tiplinectrl.NewController(tipSvc),
		Health:            health,
		Transport:         transport,
		Store:             store,
		RequiredProviders: cfg.Auth.RequiredProviders,
		LoginPath:         cfg.Auth.LoginPath,
		CompletePath:      cfg.Auth.CompletePath,
		StartLimiter:      startLimiter,
		CallbackLimiter:   callbackLimiter,
		TiplineLimiter:    tiplineLimiter,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("portal listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if strings.TrimSpace(cfg.Storage.DSN) == "" {
		return nil, errors.New("storage DSN vacío (config storage.dsn o env DATABASE_URL)")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	if cfg.Storage.Postgres.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.Storage.Postgres.MaxConns)
	}
	if cfg.Storage.Postgres.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// newLimiter arma un limiter redis si el cache lo soporta, si no memoria.
func newLimiter(c cache.Client, prefix string, limit int, window string, enabled bool) rate.Limiter {
	if !enabled {
		return nil
	}
	w, err := time.ParseDuration(window)
	if err != nil {
		w = time.Minute
	}
	if rc, ok := c.(interface{ Raw() *redis.Client }); ok {
		return rate.NewRedisLimiter(rc.Raw(), prefix, limit, w)
	}
	return rate.NewMemoryLimiter(limit, w)
}

// prefixedGetenv resuelve las variables del IdP con prefijo por provider
// (DISCORD_IDP_DOMAIN) y cae a la variable global (IDP_DOMAIN).
func prefixedGetenv(provider string) func(string) string {
	prefix := strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_"
	return func(key string) string {
		if v := os.Getenv(prefix + key); v != "" {
			return v
		}
		return os.Getenv(key)
	}
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
