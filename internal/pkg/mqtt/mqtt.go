package mqtt

import (
	"errors"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/anicoll/tibber-price-alert/internal/pkg/config"
)

const clientID = "tibber-price-alert"

var errTimeout = errors.New("mqtt operation timed out")

type service struct {
	client      paho_mqtt.Client
	topicPrefix string
	logger      *zap.Logger

	mu                sync.Mutex
	configuredSensors map[string]struct{}
}

// NewClient builds a paho client for the configured broker, it does not connect.
func NewClient(cfg *config.MqttConfig) paho_mqtt.Client {
	opts := paho_mqtt.NewClientOptions().
		AddBroker(cfg.Host).
		SetClientID(clientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	return paho_mqtt.NewClient(opts)
}

func New(client paho_mqtt.Client, topicPrefix string, logger *zap.Logger) *service {
	return &service{
		client:            client,
		topicPrefix:       topicPrefix,
		logger:            logger,
		configuredSensors: make(map[string]struct{}),
	}
}

func (s *service) Connect() error {
	return wait(s.client.Connect(), time.Second*5)
}

func (s *service) Close() error {
	s.client.Disconnect(250)
	return nil
}

func wait(token paho_mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return errTimeout
	}
	return token.Error()
}
