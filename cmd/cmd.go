package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/tibber-price-alert/internal/pkg/alert"
	"github.com/anicoll/tibber-price-alert/internal/pkg/config"
	"github.com/anicoll/tibber-price-alert/internal/pkg/metrics"
	"github.com/anicoll/tibber-price-alert/internal/pkg/mqtt"
	"github.com/anicoll/tibber-price-alert/internal/pkg/notifier"
	"github.com/anicoll/tibber-price-alert/internal/pkg/scheduler"
	"github.com/anicoll/tibber-price-alert/internal/pkg/server"
	"github.com/anicoll/tibber-price-alert/internal/pkg/telegram"
	"github.com/anicoll/tibber-price-alert/internal/pkg/tibber"
	"github.com/anicoll/tibber-price-alert/internal/pkg/translation"
)

// RunCommand starts the hourly price alert and blocks until SIGINT or SIGTERM.
func RunCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, logger)
}

// CheckCommand performs a single price check and exits.
func CheckCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return check(ctx, cfg, logger)
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	var err error
	logCfg := zap.NewProductionConfig()

	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

type application struct {
	checker *alert.Checker
	metrics *metrics.Metrics
	closers []func() error
}

func (a *application) close(logger *zap.Logger) {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			logger.Warn("error during shutdown", zap.Error(err))
		}
	}
}

// build wires the checker. Optional sinks that fail to start are logged and
// left out, only the Tibber push is required.
func build(cfg *config.Config, logger *zap.Logger) (*application, error) {
	tr, err := translation.New(cfg.Language)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	tibberClient := tibber.New(cfg.TibberCfg, tibber.WithLogger(logger))
	n := notifier.New(tibberClient, tr, m, logger)
	app := &application{metrics: m}

	if cfg.TelegramCfg.Enabled() {
		sink, err := telegram.New(cfg.TelegramCfg, logger)
		if err != nil {
			logger.Error("telegram disabled, could not create bot", zap.Error(err))
		} else if err := n.RegisterSink("telegram", sink); err != nil {
			return nil, err
		}
	}

	opts := []alert.Option{alert.WithLocation(time.Local)}
	if cfg.MqttCfg.Enabled() {
		svc := mqtt.New(mqtt.NewClient(cfg.MqttCfg), cfg.MqttCfg.TopicPrefix, logger)
		if err := svc.Connect(); err != nil {
			logger.Error("mqtt disabled, could not connect to broker", zap.Error(err), zap.String("host", cfg.MqttCfg.Host))
			_ = svc.Close()
		} else {
			opts = append(opts, alert.WithPublisher("mqtt", svc))
			app.closers = append(app.closers, svc.Close)
		}
	}

	logger.Info("notification targets configured",
		zap.String("language", tr.Language()),
		zap.Strings("sinks", n.Sinks()),
	)
	app.checker = alert.New(tibberClient, n, m, logger, opts...)
	return app, nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	app, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer app.close(logger)

	eg, ctx := errgroup.WithContext(ctx)

	sched, err := scheduler.New(ctx, cfg.ScheduleCfg.CronSpec(), func(ctx context.Context) {
		app.checker.Run(ctx)
	}, logger)
	if err != nil {
		return err
	}

	eg.Go(func() error {
		return sched.Run(ctx)
	})

	if cfg.HTTPAddr != "" {
		srv := &http.Server{
			Handler:      server.New(app.checker, sched, app.metrics.Registry).Handler(),
			Addr:         cfg.HTTPAddr,
			WriteTimeout: 15 * time.Second,
			ReadTimeout:  15 * time.Second,
		}

		eg.Go(func() error {
			logger.Info("status server listening", zap.String("addr", cfg.HTTPAddr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = eg.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func check(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	app, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer app.close(logger)

	result := app.checker.Run(ctx)
	logger.Info("price check finished",
		zap.String("tick_id", result.ID),
		zap.Stringer("outcome", result.Outcome),
		zap.Duration("duration", result.FinishedAt.Sub(result.StartedAt)),
	)
	return nil
}
