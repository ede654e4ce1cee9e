// Package mqtt connects the compile service to an MQTT broker: compile
// requests arrive on one topic and responses are published per request.
package mqtt

import (
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/ScriptGraph/internal/events"
	"github.com/AaronLay10/ScriptGraph/internal/metrics"
)

const (
	operationTimeout = 10 * time.Second
	qos              = 1
)

// Options configures a Client.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Client wraps the Paho MQTT client.
type Client struct {
	client paho.Client
	broker string
	mu     sync.Mutex

	hookMu    sync.Mutex
	onConnect []func()
	onLost    []func(error)
}

// NewClient creates a new MQTT client but does not connect. Connection
// changes are emitted as bus.* events.
func NewClient(o Options) *Client {
	c := &Client{broker: o.Broker}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		// Handlers publish responses and wait for the ack.
		SetOrderMatters(false).
		SetOnConnectHandler(func(paho.Client) { c.connected() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) { c.lost(err) })
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	c.client = paho.NewClient(opts)
	return c
}

// OnConnect registers fn to run after every successful (re)connect.
func (c *Client) OnConnect(fn func()) {
	c.hookMu.Lock()
	c.onConnect = append(c.onConnect, fn)
	c.hookMu.Unlock()
}

// OnConnectionLost registers fn to run whenever the connection drops.
func (c *Client) OnConnectionLost(fn func(error)) {
	c.hookMu.Lock()
	c.onLost = append(c.onLost, fn)
	c.hookMu.Unlock()
}

func (c *Client) connected() {
	metrics.SetBusConnected(true)
	events.Emit("info", "bus.connected", "", map[string]interface{}{"broker": c.broker})

	c.hookMu.Lock()
	hooks := append([]func(){}, c.onConnect...)
	c.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func (c *Client) lost(err error) {
	metrics.SetBusConnected(false)
	fields := map[string]interface{}{"broker": c.broker}
	if err != nil {
		fields["error"] = err.Error()
	}
	events.Emit("warn", "bus.disconnected", "", fields)

	c.hookMu.Lock()
	hooks := append([]func(error){}, c.onLost...)
	c.hookMu.Unlock()
	for _, fn := range hooks {
		fn(err)
	}
}

// Connect attempts to connect to the broker.
// Returns an error if connection fails, but does not block indefinitely.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(operationTimeout) {
		return &ConnectTimeoutError{}
	}
	return token.Error()
}

// Subscribe subscribes to a topic with the given handler.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Subscribe(topic, qos, handler)
	if !token.WaitTimeout(operationTimeout) {
		return &SubscribeTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Publish sends payload to topic at QoS 1, not retained.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(operationTimeout) {
		return &PublishTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
	metrics.SetBusConnected(false)
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// SubscribeTimeoutError indicates subscription timed out.
type SubscribeTimeoutError struct {
	Topic string
}

func (e *SubscribeTimeoutError) Error() string {
	return "mqtt subscribe timeout: " + e.Topic
}

// PublishTimeoutError indicates a publish was not acknowledged in time.
type PublishTimeoutError struct {
	Topic string
}

func (e *PublishTimeoutError) Error() string {
	return "mqtt publish timeout: " + e.Topic
}

// ConnectWithLog connects and logs the failure instead of returning it.
// Paho keeps retrying in the background either way.
func (c *Client) ConnectWithLog() bool {
	if err := c.Connect(); err != nil {
		log.Printf("mqtt: failed to connect to %s: %v", c.broker, err)
		events.Emit("error", "bus.error", "connect failed", map[string]interface{}{
			"broker": c.broker,
			"error":  err.Error(),
		})
		return false
	}
	return true
}
