package main

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/ridewave/ridewave/api/cmd/build/all"
	"github.com/ridewave/ridewave/app/sdk/auth"
	"github.com/ridewave/ridewave/app/sdk/mux"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/domain/grantbus/stores/grantdb"
	"github.com/ridewave/ridewave/business/domain/policybus"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus/stores/subscriptiondb"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/domain/tenantbus/stores/tenantcache"
	"github.com/ridewave/ridewave/business/domain/tenantbus/stores/tenantdb"
	"github.com/ridewave/ridewave/business/domain/userbus"
	"github.com/ridewave/ridewave/business/domain/userbus/stores/usercache"
	"github.com/ridewave/ridewave/business/domain/userbus/stores/userdb"
	"github.com/ridewave/ridewave/business/sdk/audit"
	"github.com/ridewave/ridewave/business/sdk/audit/stores/auditdb"
	"github.com/ridewave/ridewave/business/sdk/payment"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/foundation/keystore"
	"github.com/ridewave/ridewave/foundation/logger"
	"github.com/ridewave/ridewave/foundation/otel"
)

var build = "develop"

type Config struct {
	Version struct {
		Build string `json:"build"`
		Desc  string `json:"desc"`
	} `json:"version"`

	Web struct {
		ReadTimeout        time.Duration `envconfig:"WEB_READ_TIMEOUT" default:"5s"`
		WriteTimeout       time.Duration `envconfig:"WEB_WRITE_TIMEOUT" default:"10s"`
		IdleTimeout        time.Duration `envconfig:"WEB_IDLE_TIMEOUT" default:"120s"`
		ShutdownTimeout    time.Duration `envconfig:"WEB_SHUTDOWN_TIMEOUT" default:"20s"`
		APIHost            string        `envconfig:"WEB_API_HOST" default:"0.0.0.0:3000"`
		DebugHost          string        `envconfig:"WEB_DEBUG_HOST" default:"0.0.0.0:3010"`
		CORSAllowedOrigins []string      `envconfig:"WEB_CORS_ALLOWED_ORIGINS" default:"*"`
	}
	Auth struct {
		KeysFolder string `envconfig:"AUTH_KEYS_FOLDER" default:"foundation/zarf/keys"`
		Issuer     string `envconfig:"AUTH_ISSUER" default:"https://ridewave.io/auth/"`
	}
	DB struct {
		User         string `envconfig:"DB_USER" default:"postgres"`
		Password     string `envconfig:"DB_PASSWORD" default:"postgres"`
		Host         string `envconfig:"DB_HOST" default:"localhost"`
		Name         string `envconfig:"DB_NAME" default:"ridewave"`
		MaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"0"`
		MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"0"`
		DisableTLS   bool   `envconfig:"DB_DISABLE_TLS" default:"true"`
	}
	Payment struct {
		CheckoutURL   string `envconfig:"PAYMENT_CHECKOUT_URL" default:"https://checkout.ridewave.io/session"`
		SigningSecret string `envconfig:"PAYMENT_SIGNING_SECRET" default:"dev-only-secret"`
	}
	Cache struct {
		ProfileTTL time.Duration `envconfig:"CACHE_PROFILE_TTL" default:"30s"`
		UserTTL    time.Duration `envconfig:"CACHE_USER_TTL" default:"5m"`
	}
	Scheduler struct {
		Interval time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"1h"`
	}
	Tempo struct {
		Host        string  `envconfig:"TEMPO_HOST" default:"tempo:4317"`
		ServiceName string  `envconfig:"TEMPO_SERVICE_NAME" default:"RIDEWAVE"`
		Probability float64 `envconfig:"TEMPO_PROBABILITY" default:"0.05"`
		Enabled     bool    `envconfig:"TEMPO_ENABLED" default:"true"`
	}
}

func main() {
	var log *logger.Logger

	events := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			log.Info(ctx, "******* SEND ALERT *******")
		},
	}

	log = logger.NewWithEvents(os.Stdout, logger.LevelInfo, "RIDEWAVE", otel.GetTraceID, events)

	// -------------------------------------------------------------------------

	ctx := context.Background()

	if err := run(ctx, log); err != nil {
		log.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {

	// -------------------------------------------------------------------------
	// GOMAXPROCS

	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	// -------------------------------------------------------------------------
	// Configuration

	var cfg Config

	cfg.Version.Build = build
	cfg.Version.Desc = "RIDEWAVE"

	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("processing config: %w", err)
	}

	// -------------------------------------------------------------------------
	// App Starting

	log.Info(ctx, "startup", "version", cfg.Version)
	log.Info(ctx, "startup", "config", sanitizeConfig(cfg))

	log.Info(ctx, "starting service", "version", cfg.Version.Build)
	defer log.Info(ctx, "shutdown complete")

	log.BuildInfo(ctx)

	expvar.NewString("build").Set(cfg.Version.Build)

	// -------------------------------------------------------------------------
	// Database Support

	log.Info(ctx, "startup", "status", "initializing database support", "hostport", cfg.DB.Host)

	db, err := sqldb.Open(sqldb.Config{
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Host:         cfg.DB.Host,
		Name:         cfg.DB.Name,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		DisableTLS:   cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}

	defer db.Close()

	// -------------------------------------------------------------------------
	// Start Tracing Support

	log.Info(ctx, "startup", "status", "initializing tracing support")

	traceProvider, teardown, err := otel.InitTracing(log, otel.Config{
		ServiceName: cfg.Tempo.ServiceName,
		Host:        cfg.Tempo.Host,
		ExcludedRoutes: map[string]struct{}{
			"/v1/liveness":  {},
			"/v1/readiness": {},
		},
		Probability: cfg.Tempo.Probability,
	})
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}

	defer teardown(context.Background())

	tracer := traceProvider.Tracer(cfg.Tempo.ServiceName)

	// -------------------------------------------------------------------------
	// Business Layer

	log.Info(ctx, "startup", "status", "initializing business support")

	auditor := audit.NewCore(log, auditdb.NewStore(log, db))
	grantBus := grantbus.NewCore(log, grantdb.NewStore(log, db))
	userBus := userbus.NewCore(log, usercache.NewStore(log, userdb.NewStore(log, db), cfg.Cache.UserTTL))
	tenantBus := tenantbus.NewCore(log, tenantcache.NewStore(log, tenantdb.NewStore(log, db), cfg.Cache.ProfileTTL))

	gateway := payment.New(payment.Config{
		Log:           log,
		CheckoutURL:   cfg.Payment.CheckoutURL,
		SigningSecret: cfg.Payment.SigningSecret,
	})

	subscriptionBus := subscriptionbus.NewCore(log, subscriptiondb.NewStore(log, db), grantBus, tenantBus, gateway, auditor)

	policyBus, err := policybus.NewCore(log, policybus.DefaultRules())
	if err != nil {
		return fmt.Errorf("constructing policy engine: %w", err)
	}

	// -------------------------------------------------------------------------
	// Auth Support

	log.Info(ctx, "startup", "status", "initializing authentication support")

	ks := keystore.New()

	activeKID, err := ks.LoadByFileSystem(os.DirFS(cfg.Auth.KeysFolder))
	if err != nil {
		return fmt.Errorf("loading keys: %w", err)
	}

	authClient, err := auth.New(auth.Config{
		Log:       log,
		UserBus:   userBus,
		KeyLookup: ks,
		Issuer:    cfg.Auth.Issuer,
	})
	if err != nil {
		return fmt.Errorf("constructing auth: %w", err)
	}

	// -------------------------------------------------------------------------
	// Billing Period Scheduler

	log.Info(ctx, "startup", "status", "initializing billing scheduler", "interval", cfg.Scheduler.Interval)

	schedulerDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Scheduler.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-schedulerDone:
				return
			case <-ticker.C:
				now := time.Now()

				if n, err := subscriptionBus.CloseElapsed(ctx, now); err != nil {
					log.Error(ctx, "scheduler: close elapsed", "err", err)
				} else if n > 0 {
					log.Info(ctx, "scheduler: closed elapsed subscriptions", "count", n)
				}

				if n, err := grantBus.ResetExpired(ctx, now); err != nil {
					log.Error(ctx, "scheduler: reset usage", "err", err)
				} else if n > 0 {
					log.Info(ctx, "scheduler: reset usage counters", "count", n)
				}
			}
		}
	}()
	defer close(schedulerDone)

	// -------------------------------------------------------------------------
	// Start API Service

	log.Info(ctx, "startup", "status", "initializing V1 API support")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	cfgMux := mux.Config{
		Build:     cfg.Version.Build,
		Log:       log,
		DB:        db,
		Tracer:    tracer,
		Auth:      authClient,
		ActiveKID: activeKID,
		BusConfig: mux.BusConfig{
			UserBus:         userBus,
			TenantBus:       tenantBus,
			SubscriptionBus: subscriptionBus,
			GrantBus:        grantBus,
			PolicyBus:       policyBus,
			Gateway:         gateway,
		},
	}

	webAPI := mux.WebAPI(cfgMux,
		all.Routes(),
		mux.WithCORS(cfg.Web.CORSAllowedOrigins),
	)

	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      webAPI,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     logger.NewStdLogger(log, logger.LevelError),
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Info(ctx, "startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// -------------------------------------------------------------------------
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info(ctx, "shutdown", "status", "shutdown started", "signal", sig)
		defer log.Info(ctx, "shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(ctx, cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

func sanitizeConfig(cfg Config) string {
	cfg.DB.Password = "[MASKED]"
	cfg.Payment.SigningSecret = "[MASKED]"

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Sprintf("%+v", cfg)
	}
	return string(data)
}
