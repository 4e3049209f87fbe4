package notifier

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/tibber-price-alert/internal/pkg/metrics"
	"github.com/anicoll/tibber-price-alert/internal/pkg/model"
)

const (
	titleMsgID   = "Low price alert!"
	messageMsgID = "The electricity price is now the lowest of today: %s %s/kWh."

	pushSinkName = "tibber"
)

var (
	ErrNoCheapestHour    = errors.New("cheapest hour data missing")
	ErrNotDelivered      = errors.New("notification not delivered")
	errAlreadyRegistered = errors.New("sink already registered")
)

type pushClient interface {
	SendPushNotification(ctx context.Context, req model.NotificationRequest) (model.NotificationResult, error)
}

type translator interface {
	Translate(msgID string, vars ...any) string
}

// Sink is an additional channel that receives every notification after the
// Tibber push has been attempted.
type Sink interface {
	Send(ctx context.Context, req model.NotificationRequest, hour model.PriceRecord) error
}

type Notifier struct {
	client     pushClient
	translator translator
	sinks      map[string]Sink
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func New(client pushClient, tr translator, m *metrics.Metrics, logger *zap.Logger) *Notifier {
	return &Notifier{
		client:     client,
		translator: tr,
		sinks:      make(map[string]Sink),
		metrics:    m,
		logger:     logger,
	}
}

func (n *Notifier) RegisterSink(name string, sink Sink) error {
	if _, ok := n.sinks[name]; ok || name == pushSinkName {
		return fmt.Errorf("%w: %s", errAlreadyRegistered, name)
	}
	n.sinks[name] = sink
	return nil
}

// Sinks returns the names of the registered sinks in a stable order.
func (n *Notifier) Sinks() []string {
	names := lo.Keys(n.sinks)
	slices.Sort(names)
	return names
}

// BuildRequest renders the notification for hour in the configured language.
func (n *Notifier) BuildRequest(hour model.PriceRecord) model.NotificationRequest {
	return model.NotificationRequest{
		Title:   n.translator.Translate(titleMsgID),
		Message: n.translator.Translate(messageMsgID, hour.Total.Decimal.String(), hour.Unit()),
	}
}

// Notify pushes the cheapest hour to the Tibber app and all registered sinks.
// Only the outcome of the Tibber push is returned, sink failures are logged.
func (n *Notifier) Notify(ctx context.Context, hour *model.PriceRecord) error {
	if hour == nil {
		n.logger.Warn("cannot send notification: cheapest hour data missing")
		return ErrNoCheapestHour
	}
	n.logger.Info("sending notification for cheapest hour today",
		zap.Time("starts_at", hour.StartsAt),
		zap.Stringer("total", hour.Total.Decimal),
	)

	req := n.BuildRequest(*hour)
	err := n.push(ctx, req)

	for _, name := range n.Sinks() {
		n.sendToSink(ctx, name, req, *hour)
	}
	return err
}

func (n *Notifier) push(ctx context.Context, req model.NotificationRequest) error {
	result, err := n.client.SendPushNotification(ctx, req)
	if err != nil {
		n.metrics.SinkFailures.WithLabelValues(pushSinkName).Inc()
		return fmt.Errorf("sending push notification: %w", err)
	}
	if !result.Successful {
		n.metrics.SinkFailures.WithLabelValues(pushSinkName).Inc()
		n.logger.Warn("failed to send notification or no devices received it", zap.Any("result", result))
		return ErrNotDelivered
	}

	n.metrics.Notifications.WithLabelValues(pushSinkName).Inc()
	n.logger.Info("notification sent successfully", zap.Int("devices", result.PushedToNumberOfDevices))
	return nil
}

func (n *Notifier) sendToSink(ctx context.Context, name string, req model.NotificationRequest, hour model.PriceRecord) {
	defer func() {
		if r := recover(); r != nil {
			n.metrics.SinkFailures.WithLabelValues(name).Inc()
			n.logger.Error("recovered from panic in notification sink", zap.String("sink", name), zap.Any("panic", r))
		}
	}()

	if err := n.sinks[name].Send(ctx, req, hour); err != nil {
		n.metrics.SinkFailures.WithLabelValues(name).Inc()
		n.logger.Error("failed to notify sink", zap.Error(err), zap.String("sink", name))
		return
	}
	n.metrics.Notifications.WithLabelValues(name).Inc()
	n.logger.Debug("notified sink", zap.String("sink", name))
}
