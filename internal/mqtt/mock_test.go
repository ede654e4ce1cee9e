package mqtt

import (
	"errors"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type published struct {
	topic   string
	payload []byte
}

// MockBus records subscriptions and publishes in memory.
type MockBus struct {
	mu            sync.Mutex
	subscriptions map[string]paho.MessageHandler
	published     []published
	subscribeErr  error
	publishErr    error
}

func NewMockBus() *MockBus {
	return &MockBus{subscriptions: make(map[string]paho.MessageHandler)}
}

func (m *MockBus) Subscribe(topic string, handler paho.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.subscriptions[topic] = handler
	return nil
}

func (m *MockBus) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, published{topic: topic, payload: payload})
	return nil
}

func (m *MockBus) Published() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.published...)
}

func (m *MockBus) SimulateMessage(topic string, payload []byte) bool {
	m.mu.Lock()
	handler, ok := m.subscriptions[topic]
	m.mu.Unlock()
	if ok {
		handler(nil, &mockMessage{topic: topic, payload: payload})
	}
	return ok
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 1 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

type mockToken struct {
	err     error
	timeout bool
}

func (t *mockToken) Wait() bool                       { return !t.timeout }
func (t *mockToken) WaitTimeout(_ time.Duration) bool { return !t.timeout }
func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *mockToken) Error() error { return t.err }

// mockPahoClient stands in for paho.Client under Client.
type mockPahoClient struct {
	mu           sync.Mutex
	connected    bool
	connectToken *mockToken
	publishToken *mockToken
	published    []published
	subscribed   []string
	disconnected bool
}

func newMockPahoClient() *mockPahoClient {
	return &mockPahoClient{connectToken: &mockToken{}, publishToken: &mockToken{}}
}

func (m *mockPahoClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockPahoClient) IsConnectionOpen() bool { return m.IsConnected() }

func (m *mockPahoClient) Connect() paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectToken.err == nil && !m.connectToken.timeout {
		m.connected = true
	}
	return m.connectToken
}

func (m *mockPahoClient) Disconnect(uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.disconnected = true
}

func (m *mockPahoClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, _ := payload.([]byte)
	m.published = append(m.published, published{topic: topic, payload: b})
	return m.publishToken
}

func (m *mockPahoClient) Subscribe(topic string, _ byte, _ paho.MessageHandler) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, topic)
	return &mockToken{}
}

func (m *mockPahoClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &mockToken{err: errors.New("not supported")}
}

func (m *mockPahoClient) Unsubscribe(...string) paho.Token { return &mockToken{} }

func (m *mockPahoClient) AddRoute(string, paho.MessageHandler) {}

func (m *mockPahoClient) OptionsReader() paho.ClientOptionsReader {
	return paho.ClientOptionsReader{}
}
