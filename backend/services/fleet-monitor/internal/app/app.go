package app

import (
	"context"
	"database/sql"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "batteryfleet/backend/libs/redis"
	"batteryfleet/backend/services/fleet-monitor/internal/config"
	"batteryfleet/backend/services/fleet-monitor/internal/db"
	"batteryfleet/backend/services/fleet-monitor/internal/feed"
	httpserver "batteryfleet/backend/services/fleet-monitor/internal/http"
	"batteryfleet/backend/services/fleet-monitor/internal/http/handlers"
	"batteryfleet/backend/services/fleet-monitor/internal/notify"
	"batteryfleet/backend/services/fleet-monitor/internal/repository"
	"batteryfleet/backend/services/fleet-monitor/internal/service"
	"batteryfleet/backend/services/fleet-monitor/internal/settings"
	"batteryfleet/backend/services/fleet-monitor/internal/store"
	"batteryfleet/backend/services/fleet-monitor/internal/ws"
)

// App wires fleet monitor dependencies.
type App struct {
	server      *httpserver.Server
	monitor     *service.Monitor
	push        *ws.Server
	events      <-chan store.Event
	unsubscribe func()
	pushCancel  context.CancelFunc
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph. Postgres, Redis, the feed and Telegram are each optional.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	st, err := store.New(store.Options{
		LiveCapacity:   cfg.Buffers.Live,
		ChartCapacity:  cfg.Buffers.Chart,
		HourlyCapacity: cfg.Buffers.Hourly,
		HourlyBucket:   cfg.Buffers.HourlyBucket,
		Lookback:       cfg.History.Lookback,
		Thresholds:     cfg.Thresholds,
		TimeRange:      cfg.DefaultTimeRange(),
		Retention:      cfg.Alerts.Retention,
		StatusAlerts:   cfg.Alerts.StatusAlerts,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	source, err := feed.NewSource(cfg.Feed, logger)
	if err != nil {
		return nil, err
	}

	a := &App{logger: logger}

	var fetcher service.HistoryFetcher
	a.db, err = db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if a.db != nil {
		fetcher = repository.NewReadingRepository(a.db)
	} else {
		logger.Warn("database dsn not set, history loading disabled")
	}

	var settingsRepo settings.Repository = settings.NoopRepository{}
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		a.redisClient, err = libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		settingsRepo = settings.NewRedisRepository(a.redisClient, cfg.Redis.Key)
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.PerSecond, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		notifier = tg
	}

	a.monitor = service.NewMonitor(st, source, fetcher, settingsRepo, notifier, service.Options{
		FetchLimit:   cfg.History.FetchLimit,
		FetchTimeout: cfg.History.FetchTimeout,
	}, logger)

	pushCtx, pushCancel := context.WithCancel(context.Background())
	a.pushCancel = pushCancel
	a.push = ws.NewServer(pushCtx, ws.NewManager(), cfg.Push.WriteTimeout, logger)
	a.events, a.unsubscribe = st.Subscribe(cfg.Push.Buffer)

	routes := httpserver.Routes{
		Fleet:  handlers.NewFleetHandlers(a.monitor, logger),
		Health: handlers.NewHealthHandler(),
		Push:   a.push.HandleWS,
	}
	router := httpserver.NewRouter(routes, cfg.HTTP.CORSOrigins, logger)
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return a, nil
}

// Run restores preferences, then serves HTTP, consumes the feed and pushes store events until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.monitor.Restore(ctx); err != nil {
		a.logger.Warn("failed to restore preferences", zap.Error(err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	monitorDone := make(chan error, 1)
	go func() {
		monitorDone <- a.monitor.Run(runCtx)
	}()
	go a.push.Pump(runCtx, a.events)

	err := a.server.Run(runCtx)
	cancel()
	a.pushCancel()
	if merr := <-monitorDone; merr != nil {
		a.logger.Warn("monitor stopped with error", zap.Error(merr))
	}
	return err
}

// Close releases resources.
func (a *App) Close() {
	if a.monitor != nil {
		a.monitor.Close()
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.pushCancel != nil {
		a.pushCancel()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
