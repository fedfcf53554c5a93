// Package mqtt publishes decoded snapshots to an MQTT broker. Publishing is
// strictly best-effort: a dead broker must never stall the poll loop, so the
// publish path sits behind a circuit breaker.
package mqtt

import (
	"context"
	"fmt"
	"strconv"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/tsoiks/heliotherm-bridge/internal/domain"
	"github.com/tsoiks/heliotherm-bridge/internal/metrics"
)

// Config holds MQTT publisher configuration.
type Config struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// Publisher publishes each field of a snapshot to <prefix>/<key>.
type Publisher struct {
	config  Config
	client  pahomqtt.Client
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
	metrics *metrics.Registry
}

// NewPublisher creates an MQTT publisher. Connect must be called before the
// first publish.
func NewPublisher(config Config, logger zerolog.Logger, metricsReg *metrics.Registry) *Publisher {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 5 * time.Second
	}
	if config.TopicPrefix == "" {
		config.TopicPrefix = "heliotherm"
	}

	p := &Publisher{
		config:  config,
		logger:  logger.With().Str("component", "mqtt-publisher").Logger(),
		metrics: metricsReg,
	}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mqtt-publish",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			p.logger.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("MQTT circuit breaker state changed")
		},
	})

	return p
}

// Connect establishes the broker connection.
func (p *Publisher) Connect(ctx context.Context) error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(p.config.BrokerURL).
		SetClientID(p.config.ClientID).
		SetUsername(p.config.Username).
		SetPassword(p.config.Password).
		SetConnectTimeout(p.config.ConnectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(pahomqtt.Client) {
			p.logger.Info().Str("broker", p.config.BrokerURL).Msg("Connected to MQTT broker")
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			p.logger.Warn().Err(err).Msg("MQTT connection lost")
		})

	p.client = pahomqtt.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(p.config.ConnectTimeout) {
		return fmt.Errorf("%w: timeout after %v", domain.ErrMQTTConnectionFailed, p.config.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMQTTConnectionFailed, err)
	}
	return nil
}

// Disconnect closes the broker connection.
func (p *Publisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// PublishSnapshot publishes every field of the snapshot. Individual publish
// failures are counted and logged; the first error is returned once the
// sweep completes. With the breaker open the whole call is a cheap no-op.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap domain.Snapshot) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publishAll(ctx, snap)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		p.logger.Debug().Msg("Snapshot publish skipped: circuit breaker open")
		return nil
	}
	return err
}

func (p *Publisher) publishAll(ctx context.Context, snap domain.Snapshot) error {
	if p.client == nil || !p.client.IsConnected() {
		return domain.ErrMQTTPublishFailed
	}

	var firstErr error
	for key, value := range snap.Values {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		topic := p.config.TopicPrefix + "/" + key
		payload := strconv.FormatFloat(value, 'f', -1, 64)

		token := p.client.Publish(topic, p.config.QoS, false, payload)
		if !token.WaitTimeout(p.config.PublishTimeout) || token.Error() != nil {
			if p.metrics != nil {
				p.metrics.RecordMQTTPublish(false)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: topic %s", domain.ErrMQTTPublishFailed, topic)
			}
			continue
		}
		if p.metrics != nil {
			p.metrics.RecordMQTTPublish(true)
		}
	}

	return firstErr
}

// HealthCheck implements the health checker contract.
func (p *Publisher) HealthCheck(ctx context.Context) error {
	if p.client == nil || !p.client.IsConnected() {
		return domain.ErrMQTTConnectionFailed
	}
	return nil
}
