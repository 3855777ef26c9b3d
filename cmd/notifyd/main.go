// Command notifyd runs the notification engine: the dispatcher pools, the
// Redis retry queue consumer and the HTTP hooks.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/audience"
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/delayqueue"
	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/hooks"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifier"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
	"github.com/dmitrymomot/notifykit/pkg/templates"
	"github.com/dmitrymomot/notifykit/pkg/throttle"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("notifyd exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Service),
		logger.WithContextExtractors(requestid.Extractor(), logger.NotificationIDExtractor()),
	)
	slog.SetDefault(log)

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, notifications.Migrations, notifications.MigrationsDir, cfg.PG, log); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	store := notifications.NewPostgresStorage(pool)

	tmplStore := templates.NewPostgresStore(pool)
	if cfg.TemplatesFile != "" {
		if err := seedTemplates(ctx, tmplStore, cfg.TemplatesFile, log); err != nil {
			return err
		}
	}

	dir := audience.NewMemoryDirectory()
	if cfg.DirectoryFile != "" {
		if dir, err = audience.LoadFile(cfg.DirectoryFile); err != nil {
			return err
		}
	} else {
		log.LogAttrs(ctx, slog.LevelWarn, "no directory file configured, roles and groups resolve to nobody")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	transportOpts, inApp, err := transports(ctx, cfg, log)
	if err != nil {
		return err
	}
	throttleOpts, err := throttles(throttle.NewRedisStore(rdb), cfg)
	if err != nil {
		return err
	}

	opts := append(transportOpts, throttleOpts...)
	opts = append(opts,
		dispatcher.WithAddressBook(dispatcher.NewPostgresAddressBook(pool)),
		dispatcher.WithDelayQueue(delayqueue.NewRedisQueue(rdb,
			delayqueue.WithKey(cfg.RetryQueueKey), delayqueue.WithRedisLogger(log))),
		dispatcher.WithRegisterer(reg),
		dispatcher.WithLogger(log),
	)
	disp, err := dispatcher.New(store, cfg.Dispatch, opts...)
	if err != nil {
		return err
	}

	svc := notifier.New(store,
		templates.NewResolver(tmplStore, templates.WithResolverLogger(log)),
		audience.NewResolver(dir, audience.WithResolverLogger(log)),
		disp,
		notifier.WithLogger(log),
	)

	hk := hooks.NewHandler(cfg.ReceiptSecret, disp, svc,
		hooks.WithLogger(log),
		hooks.WithMaxAge(cfg.ReceiptMaxAge),
		hooks.WithInApp(inApp),
	)

	r := chi.NewRouter()
	r.Use(requestid.Middleware, middleware.RealIP, middleware.Recoverer)
	r.Get("/health/live", httpserver.Liveness())
	r.Get("/health/ready", httpserver.Readiness(log, 2*time.Second, map[string]httpserver.Check{
		"postgres": pg.Healthcheck(pool),
		"redis":    redis.Healthcheck(rdb),
	}))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/v1", hk.Routes())

	srv, err := httpserver.New(cfg.HTTP, r, httpserver.WithLogger(log))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(disp.Run(gctx))
	g.Go(func() error { return srv.Run(gctx) })

	log.LogAttrs(ctx, slog.LevelInfo, "notifyd started",
		slog.Any("channels", disp.Channels()), slog.String("addr", cfg.HTTP.Addr))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.LogAttrs(context.Background(), slog.LevelInfo, "notifyd stopped")
	return nil
}

// seedTemplates upserts the templates file into Postgres. Notifications
// reference templates by foreign key, so the resolver always reads the
// database.
func seedTemplates(ctx context.Context, dst templates.Writer, path string, log *slog.Logger) error {
	src, err := templates.LoadFile(path)
	if err != nil {
		return err
	}
	n, err := templates.Seed(ctx, dst, src)
	if err != nil {
		return err
	}
	log.LogAttrs(ctx, slog.LevelInfo, "templates seeded", slog.String("file", path), logger.Count("templates", n))
	return nil
}
