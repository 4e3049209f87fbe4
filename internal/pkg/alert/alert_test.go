package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/tibber-price-alert/internal/pkg/metrics"
	"github.com/anicoll/tibber-price-alert/internal/pkg/model"
	"github.com/anicoll/tibber-price-alert/internal/pkg/tibber"
)

var cet = time.FixedZone("CET", 3600)

type MockFetcher struct {
	FetchTodayPricesFunc func(ctx context.Context) (model.PriceInfo, error)
	Calls                int
}

func (m *MockFetcher) FetchTodayPrices(ctx context.Context) (model.PriceInfo, error) {
	m.Calls++
	if m.FetchTodayPricesFunc != nil {
		return m.FetchTodayPricesFunc(ctx)
	}
	return model.PriceInfo{}, errors.New("mocked FetchTodayPrices not implemented")
}

type MockNotifier struct {
	NotifyFunc func(ctx context.Context, hour *model.PriceRecord) error
	Notified   []model.PriceRecord
}

func (m *MockNotifier) Notify(ctx context.Context, hour *model.PriceRecord) error {
	m.Notified = append(m.Notified, *hour)
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, hour)
	}
	return nil
}

type MockPublisher struct {
	Calls []bool
	Err   error
}

func (m *MockPublisher) PublishCheapest(_ context.Context, _ model.Home, _ model.PriceRecord, isNow bool) error {
	m.Calls = append(m.Calls, isNow)
	return m.Err
}

// dayOfPrices returns 24 hourly records where hour 3 is the cheapest and hour 14 the second cheapest.
func dayOfPrices() model.PriceInfo {
	records := make(model.PriceList, 0, 24)
	for hour := 0; hour < 24; hour++ {
		total := fmt.Sprintf("0.%d", 40+hour)
		switch hour {
		case 3:
			total = "0.05"
		case 14:
			total = "0.30"
		}
		records = append(records, model.PriceRecord{
			Total:    decimal.NewNullDecimal(decimal.RequireFromString(total)),
			StartsAt: time.Date(2024, 1, 15, hour, 0, 0, 0, cet),
			Currency: "EUR",
		})
	}
	return model.PriceInfo{Home: model.Home{ID: "home-1"}, Today: records}
}

func clockAt(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2024, 1, 15, hour, minute, 0, 0, cet)
	}
}

func newTestChecker(t *testing.T, fetcher priceFetcher, n notifier, opts ...Option) (*Checker, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	opts = append([]Option{WithLocation(cet)}, opts...)
	return New(fetcher, n, m, zaptest.NewLogger(t), opts...), m
}

func TestRun_NotifiesOnlyDuringCheapestHour(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		t.Run(fmt.Sprintf("hour %02d", hour), func(t *testing.T) {
			fetcher := &MockFetcher{FetchTodayPricesFunc: func(context.Context) (model.PriceInfo, error) {
				return dayOfPrices(), nil
			}}
			n := &MockNotifier{}
			c, _ := newTestChecker(t, fetcher, n, WithClock(clockAt(hour, 2)))

			result := c.Run(context.Background())

			require.NotNil(t, result.Cheapest)
			assert.Equal(t, 3, result.Cheapest.StartsAt.Hour())
			if hour == 3 {
				require.Len(t, n.Notified, 1)
				assert.Equal(t, "0.05", n.Notified[0].Total.Decimal.String())
				assert.Equal(t, 3, n.Notified[0].StartsAt.Hour())
				assert.Equal(t, model.OutcomeNotified, result.Outcome)
			} else {
				assert.Empty(t, n.Notified)
				assert.Equal(t, model.OutcomeNotCheapest, result.Outcome)
			}
		})
	}
}

func TestRun_FetchFailure(t *testing.T) {
	tests := map[string]struct {
		err  error
		want model.TickOutcome
	}{
		"transport":     {fmt.Errorf("%w: connection refused", tibber.ErrTransport), model.OutcomeFetchFailed},
		"http status":   {&tibber.HTTPError{StatusCode: 502, Body: "bad gateway"}, model.OutcomeFetchFailed},
		"graphql":       {&tibber.GraphQLError{Raw: `[{"message":"x"}]`}, model.OutcomeFetchFailed},
		"no price data": {tibber.ErrNoPriceData, model.OutcomeNoData},
		"malformed":     {model.ErrMalformedPriceList, model.OutcomeNoData},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			fetcher := &MockFetcher{FetchTodayPricesFunc: func(context.Context) (model.PriceInfo, error) {
				return model.PriceInfo{}, tt.err
			}}
			n := &MockNotifier{}
			c, m := newTestChecker(t, fetcher, n, WithClock(clockAt(3, 0)))

			var result model.TickResult
			assert.NotPanics(t, func() { result = c.Run(context.Background()) })

			assert.Empty(t, n.Notified, "no notification may be attempted")
			assert.Equal(t, tt.want, result.Outcome)
			assert.NotEmpty(t, result.Error)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.Ticks.WithLabelValues(tt.want.String())))
		})
	}
}

func TestRun_EmptyAndInvalidData(t *testing.T) {
	invalid := dayOfPrices()
	for i := range invalid.Today {
		invalid.Today[i].Total = decimal.NullDecimal{}
	}

	tests := map[string]struct {
		info        model.PriceInfo
		want        model.TickOutcome
		wantSkipped int
	}{
		"empty list":  {model.PriceInfo{}, model.OutcomeNoData, 0},
		"all invalid": {invalid, model.OutcomeNoValidPrice, 24},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			fetcher := &MockFetcher{FetchTodayPricesFunc: func(context.Context) (model.PriceInfo, error) {
				return tt.info, nil
			}}
			n := &MockNotifier{}
			c, _ := newTestChecker(t, fetcher, n, WithClock(clockAt(3, 0)))

			result := c.Run(context.Background())

			assert.Empty(t, n.Notified)
			assert.Equal(t, tt.want, result.Outcome)
			assert.Equal(t, tt.wantSkipped, result.Skipped)
			assert.Nil(t, result.Cheapest)
		})
	}
}

func TestRun_NotificationUnsuccessful(t *testing.T) {
	fetcher := &MockFetcher{FetchTodayPricesFunc: func(context.Context) (model.PriceInfo, error) {
		return dayOfPrices(), nil
	}}
	n := &MockNotifier{NotifyFunc: func(context.Context, *model.PriceRecord) error {
		return errors.New("notification not delivered")
	}}
	c, _ := newTestChecker(t, fetcher, n, WithClock(clockAt(3, 30)))

	var result model.TickResult
	assert.NotPanics(t, func() { result = c.Run(context.Background()) })

	assert.Len(t, n.Notified, 1, "no retry within a tick")
	assert.Equal(t, model.OutcomeNotifyFailed, result.Outcome)
}

func TestRun_DoesNotNotifyTwiceForTheSameHour(t *testing.T) {
	fetcher := &MockFetcher{FetchTodayPricesFunc: func(context.Context) (model.PriceInfo, error) {
		return dayOfPrices(), nil
	}}
	n := &MockNotifier{}
	c, _ := newTestChecker(t, fetcher, n, WithClock(clockAt(3, 10)))

	first := c.Run(context.Background())
	second := c.Run(context.Background())

	assert.Equal(t, model.OutcomeNotified, first.Outcome)
	assert.Equal(t, model.OutcomeAlreadyNotified, second.Outcome)
	assert.Len(t, n.Notified, 1)
	assert.Equal(t, 2, fetcher.Calls)
}

func TestRun_RecoversFromPanic(t *testing.T) {
	fetcher := &MockFetcher{FetchTodayPricesFunc: func(context.Context) (model.PriceInfo, error) {
		panic("unexpected")
	}}
	c, m := newTestChecker(t, fetcher, &MockNotifier{})

	var result model.TickResult
	assert.NotPanics(t, func() { result = c.Run(context.Background()) })
	assert.Equal(t, model.OutcomeInternalError, result.Outcome)
	assert.Equal(t, "unexpected", result.Error)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Ticks.WithLabelValues("internal_error")))
}

func TestRun_Publishers(t *testing.T) {
	fetcher := &MockFetcher{FetchTodayPricesFunc: func(context.Context) (model.PriceInfo, error) {
		return dayOfPrices(), nil
	}}
	ok := &MockPublisher{}
	failing := &MockPublisher{Err: errors.New("broker down")}
	n := &MockNotifier{}
	c, m := newTestChecker(t, fetcher, n,
		WithClock(clockAt(3, 0)),
		WithPublisher("mqtt", ok),
		WithPublisher("other", failing),
	)

	result := c.Run(context.Background())

	assert.Equal(t, model.OutcomeNotified, result.Outcome, "publisher failures do not affect the check")
	assert.Equal(t, []bool{true}, ok.Calls)
	assert.Equal(t, []bool{true}, failing.Calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SinkFailures.WithLabelValues("other")))
}

func TestLastResult(t *testing.T) {
	fetcher := &MockFetcher{FetchTodayPricesFunc: func(context.Context) (model.PriceInfo, error) {
		return dayOfPrices(), nil
	}}
	c, m := newTestChecker(t, fetcher, &MockNotifier{}, WithClock(clockAt(10, 0)))

	_, ok := c.LastResult()
	assert.False(t, ok)

	result := c.Run(context.Background())

	last, ok := c.LastResult()
	require.True(t, ok)
	assert.Equal(t, result.ID, last.ID)
	assert.Equal(t, model.OutcomeNotCheapest, last.Outcome)
	assert.Equal(t, 0.05, testutil.ToFloat64(m.CheapestPrice))
}

func TestRun_ClearsCheapestGaugesWithoutCheapestHour(t *testing.T) {
	fail := false
	fetcher := &MockFetcher{FetchTodayPricesFunc: func(context.Context) (model.PriceInfo, error) {
		if fail {
			return model.PriceInfo{}, tibber.ErrNoPriceData
		}
		return dayOfPrices(), nil
	}}
	c, m := newTestChecker(t, fetcher, &MockNotifier{}, WithClock(clockAt(10, 0)))

	c.Run(context.Background())
	assert.Equal(t, 0.05, testutil.ToFloat64(m.CheapestPrice))

	fail = true
	c.Run(context.Background())
	assert.True(t, math.IsNaN(testutil.ToFloat64(m.CheapestPrice)))
	assert.True(t, math.IsNaN(testutil.ToFloat64(m.CheapestStartsAt)))
}

func TestRun_SkipsOddEntriesAndStillNotifies(t *testing.T) {
	today, err := model.DecodePriceList(json.RawMessage(`[
		{"total": 0.05, "startsAt": "2024-01-15T03:00:00+01:00", "currency": 1},
		"garbage",
		{"total": 0.3, "startsAt": "2024-01-15T04:00:00+01:00", "currency": "EUR"}
	]`))
	require.NoError(t, err)

	fetcher := &MockFetcher{FetchTodayPricesFunc: func(context.Context) (model.PriceInfo, error) {
		return model.PriceInfo{Home: model.Home{ID: "home-1"}, Today: today}, nil
	}}
	n := &MockNotifier{}
	c, _ := newTestChecker(t, fetcher, n, WithClock(clockAt(3, 10)))

	result := c.Run(context.Background())

	assert.Equal(t, model.OutcomeNotified, result.Outcome)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, n.Notified, 1)
	assert.Equal(t, "0.05", n.Notified[0].Total.Decimal.String())
	assert.Equal(t, model.DefaultCurrency, n.Notified[0].Unit())
}
