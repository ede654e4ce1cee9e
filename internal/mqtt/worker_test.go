package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/AaronLay10/ScriptGraph/internal/events"
	"github.com/AaronLay10/ScriptGraph/internal/service"
)

const (
	requestTopic = "scriptgraph/compile/requests"
	resultPrefix = "scriptgraph/compile/results"
)

const compileRequest = `{"id": "r-42", "graph": {
	"nodes": [
		{"id": "s", "type": "start"},
		{"id": "h", "type": "hideElement", "properties": {"element": "door"}}
	],
	"edges": [{"source": "s", "sourceHandle": "exec", "target": "h", "targetHandle": "exec"}]
}}`

func startWorker(t *testing.T, bus *MockBus) *Worker {
	t.Helper()
	w := NewWorker(bus, service.New(), requestTopic, resultPrefix)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return w
}

func decodeResponse(t *testing.T, payload []byte) service.Response {
	t.Helper()
	var resp service.Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	return resp
}

func TestWorkerCompilesRequest(t *testing.T) {
	bus := NewMockBus()
	w := startWorker(t, bus)

	if !w.Subscribed() {
		t.Fatal("expected worker to be subscribed")
	}
	if !bus.SimulateMessage(requestTopic, []byte(compileRequest)) {
		t.Fatal("no handler on request topic")
	}

	pubs := bus.Published()
	if len(pubs) != 1 {
		t.Fatalf("expected 1 response, got %d", len(pubs))
	}
	if pubs[0].topic != resultPrefix+"/r-42" {
		t.Errorf("unexpected result topic %s", pubs[0].topic)
	}

	resp := decodeResponse(t, pubs[0].payload)
	if resp.Code != `hideElement("door");` {
		t.Errorf("unexpected code %q", resp.Code)
	}
	if resp.Error != "" || len(resp.Diagnostics) != 0 {
		t.Errorf("unexpected failure: %+v", resp)
	}
}

func TestWorkerInvalidJSON(t *testing.T) {
	events.Clear()
	bus := NewMockBus()
	startWorker(t, bus)

	bus.SimulateMessage(requestTopic, []byte("not json"))

	pubs := bus.Published()
	if len(pubs) != 1 {
		t.Fatalf("expected 1 response, got %d", len(pubs))
	}
	resp := decodeResponse(t, pubs[0].payload)
	if resp.Error != "invalid JSON" || resp.ID == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if pubs[0].topic != resultPrefix+"/"+resp.ID {
		t.Errorf("response published on %s", pubs[0].topic)
	}

	found := false
	for _, e := range events.Snapshot() {
		if e.Name == "bus.error" && e.Fields["request_id"] == resp.ID {
			found = true
		}
	}
	if !found {
		t.Error("expected bus.error event for invalid request")
	}
}

func TestWorkerRejectedDocument(t *testing.T) {
	bus := NewMockBus()
	startWorker(t, bus)

	bus.SimulateMessage(requestTopic, []byte(`{"id": "bad", "graph": {"nodes": []}}`))

	resp := decodeResponse(t, bus.Published()[0].payload)
	if resp.ID != "bad" || resp.Error == "" {
		t.Errorf("expected schema rejection, got %+v", resp)
	}
}

func TestWorkerSubscribeError(t *testing.T) {
	bus := NewMockBus()
	bus.subscribeErr = errors.New("not authorized")

	w := NewWorker(bus, service.New(), requestTopic, resultPrefix)
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected subscribe error")
	}
	if w.Subscribed() {
		t.Error("worker should not report a subscription")
	}
}

func TestWorkerPublishErrorIsReported(t *testing.T) {
	events.Clear()
	bus := NewMockBus()
	startWorker(t, bus)
	bus.publishErr = errors.New("broker gone")

	bus.SimulateMessage(requestTopic, []byte(compileRequest))

	found := false
	for _, e := range events.Snapshot() {
		if e.Name == "bus.error" && e.Fields["error"] == "broker gone" {
			found = true
		}
	}
	if !found {
		t.Error("expected bus.error event for failed publish")
	}
}

func TestResultTopicEscapesWildcards(t *testing.T) {
	w := NewWorker(NewMockBus(), service.New(), requestTopic, resultPrefix)
	if got := w.ResultTopic("a/b+#"); got != resultPrefix+"/a_b__" {
		t.Errorf("unexpected topic %s", got)
	}
}

func TestWorkerUsesStartContext(t *testing.T) {
	bus := NewMockBus()
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(bus, service.New(), requestTopic, resultPrefix)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	bus.SimulateMessage(requestTopic, []byte(compileRequest))

	resp := decodeResponse(t, bus.Published()[0].payload)
	if resp.Error != context.Canceled.Error() {
		t.Errorf("expected cancelled compile, got %+v", resp)
	}
}
