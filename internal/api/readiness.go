package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/AaronLay10/ScriptGraph/internal/metrics"
)

// readiness tracks what /ready reports. Optional dependencies that are
// down make the check "unavailable" without failing readiness.
var readiness = &readinessState{}

type readinessState struct {
	mu                sync.RWMutex
	serviceReady      bool
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}

type CheckResult struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
}

type ReadinessResponse struct {
	Ready       bool                   `json:"ready"`
	Checks      map[string]CheckResult `json:"checks"`
	NotReadyMsg string                 `json:"message,omitempty"`
}

// SetServiceReady marks the compile service as accepting requests.
func SetServiceReady(ready bool) {
	readiness.mu.Lock()
	readiness.serviceReady = ready
	readiness.mu.Unlock()
}

// SetMQTTState records broker connectivity. optional is true when the
// bus worker is disabled in config.
func SetMQTTState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
	readiness.mu.Unlock()
	metrics.SetBusConnected(connected)
}

// SetPostgresState records event store connectivity.
func SetPostgresState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.postgresConnected = connected
	readiness.postgresOptional = optional
	readiness.mu.Unlock()
	metrics.SetPostgresConnected(connected)
}

func dependencyCheck(connected, optional bool) CheckResult {
	switch {
	case connected:
		return CheckResult{Status: "ok", Optional: optional}
	case optional:
		return CheckResult{Status: "unavailable", Optional: true}
	default:
		return CheckResult{Status: "not_ready"}
	}
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	checks := map[string]CheckResult{
		"compiler": dependencyCheck(readiness.serviceReady, false),
		"mqtt":     dependencyCheck(readiness.mqttConnected, readiness.mqttOptional),
		"postgres": dependencyCheck(readiness.postgresConnected, readiness.postgresOptional),
	}
	readiness.mu.RUnlock()

	resp := ReadinessResponse{Ready: true, Checks: checks}
	var reasons []string
	for _, name := range []string{"compiler", "mqtt", "postgres"} {
		if checks[name].Status == "not_ready" {
			resp.Ready = false
			reasons = append(reasons, name+" not ready")
		}
	}
	resp.NotReadyMsg = strings.Join(reasons, "; ")

	w.Header().Set("Content-Type", "application/json")
	if !resp.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
