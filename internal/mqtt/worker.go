package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/ScriptGraph/internal/compiler"
	"github.com/AaronLay10/ScriptGraph/internal/events"
	"github.com/AaronLay10/ScriptGraph/internal/service"
)

// Bus is the part of Client the worker needs.
type Bus interface {
	Subscribe(topic string, handler paho.MessageHandler) error
	Publish(topic string, payload []byte) error
}

// Compiler runs compile requests. *service.Service implements it.
type Compiler interface {
	Compile(ctx context.Context, transport string, req service.Request) service.Response
}

// Worker answers compile requests received on the bus. Each request is a
// JSON service.Request; the JSON service.Response is published to
// <result prefix>/<request id>.
type Worker struct {
	bus          Bus
	compiler     Compiler
	requestTopic string
	resultPrefix string

	mu         sync.Mutex
	ctx        context.Context
	subscribed bool
}

func NewWorker(bus Bus, compiler Compiler, requestTopic, resultPrefix string) *Worker {
	return &Worker{
		bus:          bus,
		compiler:     compiler,
		requestTopic: requestTopic,
		resultPrefix: resultPrefix,
		ctx:          context.Background(),
	}
}

// Start subscribes to the request topic. ctx bounds every compile the
// worker runs. Calling Start again after a reconnect resubscribes.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.subscribed = false
	w.mu.Unlock()

	if err := w.bus.Subscribe(w.requestTopic, w.handle); err != nil {
		events.Emit("error", "bus.error", "failed to subscribe to request topic", map[string]interface{}{
			"topic": w.requestTopic,
			"error": err.Error(),
		})
		return err
	}

	w.mu.Lock()
	w.subscribed = true
	w.mu.Unlock()
	return nil
}

// Subscribed reports whether the request topic subscription is active.
func (w *Worker) Subscribed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.subscribed
}

// topicSafe replaces characters that would change the meaning of a topic.
var topicSafe = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// ResultTopic returns the topic the response to requestID is published on.
func (w *Worker) ResultTopic(requestID string) string {
	return w.resultPrefix + "/" + topicSafe.Replace(requestID)
}

func (w *Worker) handle(_ paho.Client, msg paho.Message) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()

	var req service.Request
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		id := service.NewRequestID()
		events.Emit("warn", "bus.error", "invalid compile request", map[string]interface{}{
			"request_id": id,
			"topic":      msg.Topic(),
			"error":      err.Error(),
		})
		w.publish(service.Response{ID: id, Diagnostics: []compiler.Diagnostic{}, Error: "invalid JSON"})
		return
	}

	w.publish(w.compiler.Compile(ctx, service.TransportMQTT, req))
}

func (w *Worker) publish(resp service.Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		events.Emit("error", "bus.error", "failed to encode compile response", map[string]interface{}{
			"request_id": resp.ID,
			"error":      err.Error(),
		})
		return
	}

	topic := w.ResultTopic(resp.ID)
	if err := w.bus.Publish(topic, payload); err != nil {
		events.Emit("error", "bus.error", "failed to publish compile response", map[string]interface{}{
			"request_id": resp.ID,
			"topic":      topic,
			"error":      err.Error(),
		})
	}
}
