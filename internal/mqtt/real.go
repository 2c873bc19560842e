package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	commandBacklog = 8
)

// brokerClient is the subset of paho.Client used by RealClient.
type brokerClient interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Disconnect(quiesce uint)
}

// Options configures a RealClient.
type Options struct {
	Broker     string
	ClientID   string
	Topics     Topics
	BufferSize int // messages held while disconnected
}

// RealClient publishes to an actual MQTT broker and delivers pump commands
// received on Topics.PumpSet. Messages published while the connection is
// down are buffered and replayed, oldest first, on reconnect.
type RealClient struct {
	client   brokerClient
	topics   Topics
	logger   zerolog.Logger
	commands chan int

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool // a connection has been established at least once
}

// NewRealClient connects to the broker. An unreachable broker is not an
// error: paho keeps retrying in the background and publishes are buffered.
func NewRealClient(o Options, logger zerolog.Logger) (*RealClient, error) {
	c := newClient(o, logger)

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(o.Topics.System, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { c.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.logger.Warn().Err(err).Msg("MQTT connection lost")
		})

	pc := paho.NewClient(opts)
	c.client = pc

	token := pc.Connect()
	if !token.WaitTimeout(connectTimeout) {
		c.logger.Warn().Str("broker", o.Broker).Msg("MQTT broker not reachable yet, buffering until connected")
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return c, nil
}

func newClient(o Options, logger zerolog.Logger) *RealClient {
	return &RealClient{
		topics:   o.Topics,
		logger:   logger.With().Str("component", "mqtt").Logger(),
		commands: make(chan int, commandBacklog),
		buf:      newRingBuffer(o.BufferSize),
	}
}

// onConnect runs on every (re)connect: subscribe to pump commands, replay
// buffered messages, and announce the reconnect.
func (c *RealClient) onConnect() {
	token := c.client.Subscribe(c.topics.PumpSet, 1, c.handleCommand)
	if !token.WaitTimeout(publishTimeout) {
		c.logger.Error().Str("topic", c.topics.PumpSet).Msg("Subscribe timeout")
	} else if err := token.Error(); err != nil {
		c.logger.Error().Err(err).Str("topic", c.topics.PumpSet).Msg("Subscribe failed")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	msgs, dropped := c.buf.drainAll()
	if dropped > 0 {
		c.logger.Warn().Int("dropped", dropped).Msg("MQTT buffer overflowed while disconnected")
	}
	for _, m := range msgs {
		if err := c.send(m); err != nil {
			c.logger.Error().Err(err).Str("topic", m.topic).Msg("Replay failed")
		}
	}
	if len(msgs) > 0 {
		c.logger.Info().Int("count", len(msgs)).Msg("Replayed buffered messages")
	}

	if c.connected {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err == nil {
			if err := c.send(bufferedMsg{topic: c.topics.System, payload: payload, qos: 1, retained: true}); err != nil {
				c.logger.Error().Err(err).Msg("Publish RECONNECTED failed")
			}
		}
		c.logger.Info().Msg("MQTT reconnected")
	} else {
		c.logger.Info().Msg("MQTT connected")
	}
	c.connected = true
}

// handleCommand forwards a pump command to Commands without blocking the
// paho callback goroutine. When the backlog is full the oldest queued
// command is discarded, so the newest command is always delivered.
func (c *RealClient) handleCommand(_ paho.Client, msg paho.Message) {
	value, ok := ParseCommand(msg.Payload())
	if !ok {
		c.logger.Warn().Str("payload", string(msg.Payload())).Msg("Unparseable pump command, treating as off")
	}
	for {
		select {
		case c.commands <- value:
			return
		default:
		}
		select {
		case stale := <-c.commands:
			c.logger.Warn().Int("dropped", stale).Int("value", value).Msg("Pump command backlog full, dropping oldest command")
		default:
		}
	}
}

// Commands returns the stream of received pump command values.
func (c *RealClient) Commands() <-chan int {
	return c.commands
}

// IsConnected reports whether the broker connection is currently open.
func (c *RealClient) IsConnected() bool {
	return c.client != nil && c.client.IsConnectionOpen()
}

// PublishTelemetry sends readings with QoS 0, not retained.
func (c *RealClient) PublishTelemetry(t Telemetry) error {
	payload, err := FormatTelemetry(t)
	if err != nil {
		return fmt.Errorf("format telemetry: %w", err)
	}
	return c.publish(bufferedMsg{topic: c.topics.Telemetry, payload: payload, qos: 0})
}

// PublishAlert sends an alert with QoS 1 so it survives a flaky link.
func (c *RealClient) PublishAlert(a Alert) error {
	payload, err := FormatAlert(a)
	if err != nil {
		return fmt.Errorf("format alert: %w", err)
	}
	return c.publish(bufferedMsg{topic: c.topics.Alerts, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event with QoS 1.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return c.publish(bufferedMsg{topic: c.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

func (c *RealClient) publish(m bufferedMsg) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		if c.buf.push(m) {
			c.logger.Warn().Msg("MQTT buffer full, dropping oldest messages")
		}
		return nil
	}
	return c.send(m)
}

// send publishes immediately. Caller holds mu.
func (c *RealClient) send(m bufferedMsg) error {
	token := c.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second quiesce
	return nil
}
