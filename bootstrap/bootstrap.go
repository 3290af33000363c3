// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file (hot-reloadable for a subset of
// fields) or, when no file is given, from CAREGATE_* environment
// variables.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/caregate/caregate/adapters/assistant"
	"github.com/caregate/caregate/adapters/clock"
	"github.com/caregate/caregate/adapters/hasher"
	"github.com/caregate/caregate/adapters/idgen"
	"github.com/caregate/caregate/adapters/metrics"
	"github.com/caregate/caregate/adapters/payment"
	"github.com/caregate/caregate/adapters/sqlite"
	"github.com/caregate/caregate/app"
	"github.com/caregate/caregate/config"
	"github.com/caregate/caregate/ports"
	"github.com/caregate/caregate/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Holder     *config.Holder
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	assistant *assistant.Client
	payments  ports.PaymentProvider
}

// New creates and initializes the application. When configPath is
// empty, configuration is read from the environment.
func New(configPath string) (*App, error) {
	// Bootstrap logger until the configured one takes over.
	bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	var (
		holder *config.Holder
		cfg    *config.Config
	)
	if configPath != "" {
		h, err := config.NewHolder(configPath, bootLogger)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		holder = h
		cfg = h.Get()
	} else {
		c, err := config.LoadFromEnv()
		if err != nil {
			return nil, fmt.Errorf("load config from env: %w", err)
		}
		cfg = c
	}

	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("initializing caregate")

	a := &App{
		Logger: logger,
		Config: cfg,
		Holder: holder,
	}

	if err := a.initDatabase(cfg); err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	}

	if err := a.initHTTPServer(cfg); err != nil {
		a.DB.Close()
		return nil, fmt.Errorf("init http server: %w", err)
	}

	if holder != nil {
		a.watchConfig(holder)
	}

	return a, nil
}

func (a *App) initDatabase(cfg *config.Config) error {
	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	a.DB = db
	a.Logger.Info().Str("dsn", cfg.Database.DSN).Msg("database initialized")
	return nil
}

func (a *App) initHTTPServer(cfg *config.Config) error {
	accounts := sqlite.NewAccountStore(a.DB)
	usageStore := sqlite.NewUsageStore(a.DB)
	conversations := sqlite.NewConversationStore(a.DB)
	profiles := sqlite.NewProfileStore(a.DB)

	clk := clock.Real{}
	ids := idgen.UUID{}

	asst, err := assistant.New(assistant.Config{
		BaseURL:         cfg.Assistant.URL,
		APIKey:          cfg.Assistant.APIKey,
		Timeout:         cfg.Assistant.Timeout,
		MaxIdleConns:    cfg.Assistant.MaxIdleConns,
		IdleConnTimeout: cfg.Assistant.IdleConnTimeout,
	})
	if err != nil {
		return fmt.Errorf("assistant client: %w", err)
	}
	a.assistant = asst

	payments, err := payment.NewProvider(payment.Config{
		Provider: cfg.Payment.Provider,
		BaseURL:  cfg.Server.BaseURL,
		Stripe: payment.StripeConfig{
			SecretKey:     cfg.Payment.StripeKey,
			PublicKey:     cfg.Payment.StripePublic,
			WebhookSecret: cfg.Payment.WebhookSecret,
		},
	})
	if err != nil {
		a.Logger.Warn().Err(err).Msg("payment provider unavailable, payments disabled")
		payments = payment.NewNoopProvider()
	}
	a.payments = payments
	a.Logger.Info().Str("provider", payments.Name()).Msg("payment provider configured")

	ledger := app.NewLedgerService(accounts, usageStore, clk, a.Metrics, a.Logger)
	accountService := app.NewAccountService(
		accounts, ledger, hasher.NewBcrypt(cfg.Auth.BcryptCost), ids, clk, a.Logger)
	chatService := app.NewChatService(
		conversations, profiles, asst, ledger, ids, clk, a.Metrics, a.Logger)
	profileService := app.NewProfileService(profiles, clk, a.Logger)
	webhookService := app.NewPaymentWebhookService(
		accounts, ledger, cfg.Payment.PriceTiers, clk, a.Metrics, a.Logger)

	handler := web.NewHandler(web.Deps{
		Accounts:   accountService,
		Ledger:     ledger,
		Chat:       chatService,
		Profiles:   profileService,
		Payments:   payments,
		Webhooks:   webhookService,
		Metrics:    a.Metrics,
		Logger:     a.Logger,
		JWTSecret:  cfg.Auth.JWTSecret,
		TokenTTL:   cfg.Auth.TokenTTL,
		BaseURL:    cfg.Server.BaseURL,
		PriceTiers: cfg.Payment.PriceTiers,
	})

	router := handler.Router(web.RouterOptions{
		Metrics:     cfg.Metrics.Enabled,
		MetricsPath: cfg.Metrics.Path,
		OpenAPI:     cfg.OpenAPI.Enabled,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	a.HTTPServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	a.Logger.Info().Str("addr", addr).Msg("http server configured")
	return nil
}

// watchConfig starts the file watcher and SIGHUP handler and applies
// the reloadable fields on change.
func (a *App) watchConfig(holder *config.Holder) {
	holder.OnChange(func(cfg *config.Config) {
		a.Config = cfg
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	})
	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable")
	}
	holder.WatchSignals()
}

// Run starts the HTTP server and blocks until interrupt.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if err := a.assistant.HealthCheck(context.Background()); err != nil {
		a.Logger.Warn().Err(err).Msg("assistant service unreachable at startup")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.Holder != nil {
		a.Holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.assistant != nil {
		a.assistant.Close()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
