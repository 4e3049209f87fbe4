package alert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anicoll/tibber-price-alert/internal/pkg/logic"
	"github.com/anicoll/tibber-price-alert/internal/pkg/metrics"
	"github.com/anicoll/tibber-price-alert/internal/pkg/model"
	"github.com/anicoll/tibber-price-alert/internal/pkg/tibber"
)

type priceFetcher interface {
	FetchTodayPrices(ctx context.Context) (model.PriceInfo, error)
}

type notifier interface {
	Notify(ctx context.Context, hour *model.PriceRecord) error
}

// CheapestPublisher receives today's cheapest hour on every check.
type CheapestPublisher interface {
	PublishCheapest(ctx context.Context, home model.Home, hour model.PriceRecord, isNow bool) error
}

type namedPublisher struct {
	name      string
	publisher CheapestPublisher
}

// Checker runs one price check: fetch, find the cheapest hour, compare with
// the current hour and notify when they match.
type Checker struct {
	fetcher    priceFetcher
	notifier   notifier
	publishers []namedPublisher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time

	mu           sync.Mutex
	lastNotified time.Time
	last         *model.TickResult
}

type Option func(*Checker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		c.now = now
	}
}

// WithLocation sets the zone the current hour is compared in, time.Local by default.
func WithLocation(loc *time.Location) Option {
	return func(c *Checker) {
		c.loc = loc
	}
}

func WithPublisher(name string, p CheapestPublisher) Option {
	return func(c *Checker) {
		c.publishers = append(c.publishers, namedPublisher{name: name, publisher: p})
	}
}

func New(fetcher priceFetcher, n notifier, m *metrics.Metrics, logger *zap.Logger, opts ...Option) *Checker {
	c := &Checker{
		fetcher:  fetcher,
		notifier: n,
		metrics:  m,
		logger:   logger,
		loc:      time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run performs a single check. It never panics and never returns an error,
// the outcome is reported in the result and the logs.
func (c *Checker) Run(ctx context.Context) (result model.TickResult) {
	result = model.TickResult{
		ID:        uuid.NewString(),
		StartedAt: c.now(),
	}
	logger := c.logger.With(zap.String("tick_id", result.ID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered from panic during price check", zap.Any("panic", r), zap.Stack("stack"))
			result.Outcome = model.OutcomeInternalError
			result.Error = fmt.Sprint(r)
		}
		result.FinishedAt = c.now()
		c.finish(result)
	}()

	c.check(ctx, logger, &result)
	return result
}

func (c *Checker) check(ctx context.Context, logger *zap.Logger, result *model.TickResult) {
	logger.Info("hourly check: fetching today's prices")
	info, err := c.fetcher.FetchTodayPrices(ctx)
	if err != nil {
		result.Outcome = classifyFetchError(err)
		result.Error = err.Error()
		if result.Outcome == model.OutcomeFetchFailed {
			logger.Error("hourly check: fetching prices failed", zap.Error(err))
		} else {
			logger.Warn("hourly check: could not fetch or parse today's price data", zap.Error(err))
		}
		return
	}
	result.Home = info.Home

	if len(info.Today) == 0 {
		logger.Warn("hourly check: no price data available for today", zap.String("home_id", info.Home.ID))
		result.Outcome = model.OutcomeNoData
		return
	}

	for _, invalid := range logic.InvalidRecords(info.Today) {
		logger.Warn("invalid price data encountered, skipping", zap.Time("starts_at", invalid.StartsAt))
	}
	cheapest, skipped, found := logic.FindCheapestWithSkipped(info.Today)
	result.Skipped = skipped
	if !found {
		logger.Warn("hourly check: could not determine the cheapest hour for today", zap.Int("records", len(info.Today)))
		result.Outcome = model.OutcomeNoValidPrice
		return
	}
	result.Cheapest = &cheapest

	logger.Info("hourly check: cheapest hour today",
		zap.Time("starts_at", cheapest.StartsAt),
		zap.Stringer("total", cheapest.Total.Decimal),
		zap.String("currency", cheapest.Unit()),
	)

	now := c.now().In(c.loc)
	isNow := logic.IsCurrentHour(now, cheapest.StartsAt, c.loc)
	c.publish(ctx, logger, info.Home, cheapest, isNow)

	if !isNow {
		logger.Info("current hour is not the cheapest hour today, no notification sent", zap.Int("hour", now.Hour()))
		result.Outcome = model.OutcomeNotCheapest
		return
	}

	if c.alreadyNotified(cheapest) {
		logger.Info("notification for the cheapest hour was already sent", zap.Time("starts_at", cheapest.StartsAt))
		result.Outcome = model.OutcomeAlreadyNotified
		return
	}

	logger.Info("current hour is the cheapest hour today, sending notification", zap.Int("hour", now.Hour()))
	if err := c.notifier.Notify(ctx, &cheapest); err != nil {
		logger.Warn("hourly check: notification failed", zap.Error(err))
		result.Outcome = model.OutcomeNotifyFailed
		result.Error = err.Error()
		return
	}
	c.markNotified(cheapest)
	result.Outcome = model.OutcomeNotified
}

func (c *Checker) publish(ctx context.Context, logger *zap.Logger, home model.Home, cheapest model.PriceRecord, isNow bool) {
	for _, p := range c.publishers {
		if err := p.publisher.PublishCheapest(ctx, home, cheapest, isNow); err != nil {
			c.metrics.SinkFailures.WithLabelValues(p.name).Inc()
			logger.Error("failed to publish cheapest hour", zap.Error(err), zap.String("publisher", p.name))
		}
	}
}

func classifyFetchError(err error) model.TickOutcome {
	var (
		httpErr *tibber.HTTPError
		gqlErr  *tibber.GraphQLError
	)
	switch {
	case errors.Is(err, tibber.ErrTransport),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &httpErr),
		errors.As(err, &gqlErr):
		return model.OutcomeFetchFailed
	default:
		return model.OutcomeNoData
	}
}

func (c *Checker) alreadyNotified(hour model.PriceRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.lastNotified.IsZero() && c.lastNotified.Equal(hour.StartsAt)
}

func (c *Checker) markNotified(hour model.PriceRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastNotified = hour.StartsAt
}

func (c *Checker) finish(result model.TickResult) {
	c.mu.Lock()
	c.last = &result
	c.mu.Unlock()

	c.metrics.Ticks.WithLabelValues(result.Outcome.String()).Inc()
	c.metrics.TickDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	c.metrics.LastTickTimestamp.Set(float64(result.FinishedAt.Unix()))
	c.metrics.SkippedRecords.Add(float64(result.Skipped))
	if result.Cheapest == nil {
		c.metrics.CheapestPrice.Set(math.NaN())
		c.metrics.CheapestStartsAt.Set(math.NaN())
		return
	}
	c.metrics.CheapestPrice.Set(result.Cheapest.Total.Decimal.InexactFloat64())
	c.metrics.CheapestStartsAt.Set(float64(result.Cheapest.StartsAt.Unix()))
}

// LastResult returns the result of the most recent check.
func (c *Checker) LastResult() (model.TickResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return model.TickResult{}, false
	}
	return *c.last, true
}
