package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmmetrics "github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	wmmiddleware "github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue"
	rankedqueuedomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/domain"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/pollguard"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/scheduler"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/season"
	seasonqueue "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/queue"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament"
	tournamentqueue "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/queue"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
	"github.com/Black-And-White-Club/shinobi-ranked/config"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/eventbus"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/httpx"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/jobqueue"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/jwt"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// .env is optional outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	obs, err := observability.Init(ctx, config.ToObsConfig(cfg, version))
	if err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}

	if err := run(ctx, cfg, obs); err != nil {
		obs.Provider.Logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, obs observability.Observability) error {
	logger := obs.Provider.Logger
	logger.InfoContext(ctx, "Starting shinobi-ranked", "version", version)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			logger.Error("Observability shutdown failed", "error", err)
		}
	}()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	bus, err := eventbus.NewNATS(ctx, eventbus.Config{
		URL:        cfg.NATS.URL,
		NKeySeed:   cfg.NATS.NKeySeed,
		QueueGroup: cfg.NATS.QueueGroup,
		Streams: []eventbus.StreamSpec{{
			Name:     "RANKED_EVENTS",
			Subjects: []string{"ranked.>", "tournament.>", "battle.finished.v1"},
			MaxAge:   7 * 24 * time.Hour,
		}},
	}, logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	// Live spectator updates must reach every instance, so this bus has no
	// queue group.
	liveBus, err := eventbus.NewNATS(ctx, eventbus.Config{
		URL:      cfg.NATS.URL,
		NKeySeed: cfg.NATS.NKeySeed,
	}, logger)
	if err != nil {
		return err
	}
	defer liveBus.Close()

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: shutdownTimeout}, watermill.NewSlogLogger(logger))
	if err != nil {
		return err
	}
	router.AddMiddleware(wmmiddleware.Recoverer)
	if obs.Registry != nil && obs.Registry.Prometheus != nil {
		wmmetrics.NewPrometheusMetricsBuilder(obs.Registry.Prometheus, "shinobi_ranked", "router").AddPrometheusRouterMetrics(router)
	}

	jobs, err := jobqueue.New(ctx, cfg.Postgres.DSN, map[string]int{
		seasonqueue.QueueName:     2,
		tournamentqueue.QueueName: 4,
	}, logger, obs.Metrics("jobqueue"))
	if err != nil {
		return err
	}

	var guard pollguard.Guard
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		guard = pollguard.NewRedisGuard(rdb, "ranked:poll:", cfg.Ranked.PollGuardTTL)
	} else {
		logger.WarnContext(ctx, "No Redis configured, poll guard is local to this instance")
		guard = pollguard.NewLocalGuard(cfg.Ranked.PollGuardTTL)
	}

	mux := chi.NewRouter()
	mux.Use(chimiddleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			httpx.Fail(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		if err := jobs.HealthCheck(r.Context()); err != nil {
			httpx.Fail(w, http.StatusServiceUnavailable, "job queue unavailable")
			return
		}
		httpx.OK(w, "ok", nil)
	})
	var metricsServer *http.Server
	if obs.Registry != nil && obs.Registry.Prometheus != nil {
		metricsHandler := promhttp.HandlerFor(obs.Registry.Prometheus, promhttp.HandlerOpts{})
		if addr := cfg.Observability.MetricsAddress; addr != "" {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", metricsHandler)
			metricsServer = &http.Server{Addr: addr, Handler: metricsMux, ReadHeaderTimeout: 10 * time.Second}
		} else {
			mux.Handle("/metrics", metricsHandler)
		}
	}

	api := chi.NewRouter()
	api.Use(httpx.RateLimit(httpx.NewIPRateLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst)))
	api.Use(identity.Middleware(jwt.NewService(cfg.JWT.Secret, "shinobi-ranked"), logger))
	mux.Mount("/api", api)

	profiles := profile.NewProfileModule(ctx, obs, db)
	loadouts := loadout.NewLoadoutModule(ctx, obs, db, api)
	battles := battle.NewBattleModule(ctx, obs, bus.Conn(), cfg.Ranked.BattleTimeout)

	queue, err := rankedqueue.NewRankedQueueModule(ctx, obs, rankedqueue.Deps{
		DB:        db,
		Profiles:  profiles.Repository,
		Loadouts:  loadouts.Repository,
		Battles:   battles.Initiator,
		Publisher: bus,
		Guard:     guard,
		API:       api,
	}, rankedqueue.Options{
		Ticker: scheduler.Config{
			TickInterval: cfg.Ranked.TickInterval,
			StaleAge:     cfg.Ranked.StaleAge,
		},
		ToleranceSteps: toleranceSteps(cfg.Ranked),
	})
	if err != nil {
		return err
	}
	defer queue.Close()

	season.NewSeasonModule(ctx, obs, season.Deps{
		DB:        db,
		Profiles:  profiles.Repository,
		Publisher: bus,
		Jobs:      jobs,
		API:       api,
	})

	tournaments, err := tournament.NewTournamentModule(ctx, obs, tournament.Deps{
		DB:         db,
		Profiles:   profiles.Repository,
		Battles:    battles.Initiator,
		Publisher:  eventbus.TopicPublisher{Publisher: bus},
		Subscriber: bus,
		Live:       liveBus,
		Router:     router,
		Jobs:       jobs,
		API:        api,
	}, tournament.Options{
		RoundDuration:  cfg.Tournament.RoundDuration,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	if err != nil {
		return err
	}
	defer tournaments.Close()

	if err := jobs.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := jobs.Stop(stopCtx); err != nil {
			logger.Error("Job queue shutdown failed", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		return router.Run(gctx)
	})
	g.Go(func() error {
		queue.Run(gctx, nil)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", "error", err)
		}
		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		return router.Close()
	})

	return g.Wait()
}

func toleranceSteps(cfg config.RankedConfig) *rankedqueuedomain.ToleranceSteps {
	if len(cfg.ToleranceSteps) == 0 {
		return nil
	}
	steps := make([]rankedqueuedomain.ToleranceStep, 0, len(cfg.ToleranceSteps))
	for _, s := range cfg.ToleranceSteps {
		steps = append(steps, rankedqueuedomain.ToleranceStep{Below: s.Below, Radius: s.Radius})
	}
	return &rankedqueuedomain.ToleranceSteps{Steps: steps, Max: cfg.ToleranceMax}
}
