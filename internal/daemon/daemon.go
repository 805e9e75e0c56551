package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/takax-network/takax/internal/api"
	"github.com/takax-network/takax/internal/app/notify"
	"github.com/takax-network/takax/internal/app/rewards"
	"github.com/takax-network/takax/internal/app/serial"
	"github.com/takax-network/takax/internal/app/service"
	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/observability"
	"github.com/takax-network/takax/internal/infra/sqlite"
	"github.com/takax-network/takax/internal/infra/telegram"
)

// ─── Wiring ─────────────────────────────────────────────────────────────────
// App owns every long-lived dependency. Close releases them in reverse
// order of construction.

// App is the wired takax process.
type App struct {
	Config  Config
	Log     *logrus.Entry
	DB      *sqlite.DB
	Service *service.Service

	lanes  *serial.Dispatcher
	notify *notify.Emitter
	redis  *redis.Client
	bot    *telegram.Bot
}

// Options tune New for commands that do not serve HTTP.
type Options struct {
	Out     io.Writer // log output; nil means stdout
	Offline bool      // skip Redis and the Telegram bot
}

// New opens the database and builds the service graph.
func New(cfg Config, opts Options) (*App, error) {
	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}, opts.Out)
	log := observability.Base(logger, "takax")

	db, err := sqlite.Open(cfg.DBDir())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &App{Config: cfg, Log: log, DB: db}

	var locker serial.Locker
	if !opts.Offline && cfg.Serializer.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Serializer.RedisAddr,
			Password: cfg.Serializer.RedisPassword,
			DB:       cfg.Serializer.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := a.redis.Ping(ctx).Err()
		cancel()
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Serializer.RedisAddr, err)
		}
		locker = serial.NewRedisLocker(a.redis, serial.RedisLockConfig{TTL: cfg.LockTTL()}, log)
		log.WithField("addr", cfg.Serializer.RedisAddr).Info("redis lock enabled")
	}
	a.lanes = serial.New(serial.Config{
		Lanes:      cfg.Serializer.Lanes,
		QueueDepth: cfg.Serializer.QueueDepth,
	}, locker, log)

	var chat domain.ChatSender
	if !opts.Offline && cfg.Telegram.BotToken != "" {
		bot, err := telegram.NewBot(telegram.BotConfig{Token: cfg.Telegram.BotToken, Timeout: cfg.NotifyTimeout()}, log)
		if err != nil {
			log.WithError(err).Warn("telegram bot unavailable, channel messages disabled")
		} else {
			a.bot, chat = bot, bot
		}
	}
	a.notify = notify.New(notify.Config{
		MaxConcurrent: cfg.Telegram.NotifyConcurrency,
		Timeout:       cfg.NotifyTimeout(),
		ChatID:        cfg.Telegram.ChannelID,
	}, db, chat, log)

	a.Service = service.New(a.serviceConfig(), service.Deps{
		DB:       db,
		Serial:   a.lanes,
		Notifier: a.notify,
		InitData: telegram.NewValidator(cfg.Telegram.BotToken, cfg.InitDataMaxAge()),
		Log:      log,
	})
	return a, nil
}

func (a *App) serviceConfig() service.Config {
	cfg := a.Config
	sc := service.Config{
		Location: cfg.Location(),
		Schedule: cfg.Schedule(),
		Withdrawals: rewards.WithdrawalPolicy{
			Minimum: decimal.NewFromFloat(cfg.Withdrawals.Minimum),
			Methods: cfg.Withdrawals.Methods,
		},
		FeePercent:   decimal.NewFromFloat(cfg.Withdrawals.FeePercent),
		ActiveWindow: cfg.ActiveWindow(),
	}
	if a.bot != nil {
		sc.BotUsername = a.bot.Username()
	}
	return sc
}

// Handler builds the HTTP handler for the configured API.
func (a *App) Handler() http.Handler {
	return api.NewServer(a.Service, api.Config{
		IsAdmin:        a.Config.IsAdmin,
		CORSOrigins:    a.Config.API.CORSOrigins,
		RequestTimeout: a.Config.RequestTimeout(),
		Metrics:        a.Config.Metrics.Enabled,
		MetricsPath:    a.Config.Metrics.Path,
	}, a.Log).Handler()
}

// Serve runs the HTTP server until ctx ends, then drains in-flight
// requests and queued notifications.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.Log.WithField("addr", srv.Addr).Info("takax listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.notify.Wait()
	return nil
}

// Close releases every resource.
func (a *App) Close() {
	if a.lanes != nil {
		a.lanes.Close()
	}
	if a.notify != nil {
		a.notify.Wait()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
