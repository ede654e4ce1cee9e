package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

const (
	AlertMQTTDisconnected    = "mqtt_disconnected"
	AlertPostgresUnavailable = "postgres_unavailable"
)

// AlertPayload is the JSON body posted to the webhook.
type AlertPayload struct {
	Service   string                 `json:"service"`
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// AlertConfig controls when a lost dependency becomes an alert.
type AlertConfig struct {
	WebhookURL              string
	MQTTDisconnectDelay     time.Duration
	PostgresDisconnectDelay time.Duration
}

// AlertConfigFromEnv reads SCRIPTGRAPH_ALERT_WEBHOOK_URL and the optional
// SCRIPTGRAPH_MQTT_ALERT_DELAY / SCRIPTGRAPH_POSTGRES_ALERT_DELAY durations.
func AlertConfigFromEnv() (AlertConfig, error) {
	cfg := AlertConfig{
		WebhookURL:              os.Getenv("SCRIPTGRAPH_ALERT_WEBHOOK_URL"),
		MQTTDisconnectDelay:     30 * time.Second,
		PostgresDisconnectDelay: 5 * time.Second,
	}
	for env, dst := range map[string]*time.Duration{
		"SCRIPTGRAPH_MQTT_ALERT_DELAY":     &cfg.MQTTDisconnectDelay,
		"SCRIPTGRAPH_POSTGRES_ALERT_DELAY": &cfg.PostgresDisconnectDelay,
	} {
		raw := os.Getenv(env)
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", env, err)
		}
		*dst = d
	}
	return cfg, nil
}

// dependencyWatch tracks one dependency's outage.
type dependencyWatch struct {
	event    string
	label    string
	severity string
	delay    time.Duration

	up        bool
	downSince time.Time
	alerted   bool
}

// Alerter posts webhook alerts when a required dependency stays down
// longer than its delay, and a recovery notice once it comes back.
// Optional dependencies never alert.
type Alerter struct {
	service string
	url     string
	client  *http.Client
	now     func() time.Time

	mu       sync.Mutex
	mqtt     dependencyWatch
	postgres dependencyWatch
	wg       sync.WaitGroup
}

func NewAlerter(service string, cfg AlertConfig) *Alerter {
	return &Alerter{
		service: service,
		url:     cfg.WebhookURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
		mqtt: dependencyWatch{
			event: AlertMQTTDisconnected, label: "MQTT broker",
			severity: SeverityWarning, delay: cfg.MQTTDisconnectDelay, up: true,
		},
		postgres: dependencyWatch{
			event: AlertPostgresUnavailable, label: "PostgreSQL",
			severity: SeverityCritical, delay: cfg.PostgresDisconnectDelay, up: true,
		},
	}
}

// Check samples the current readiness state and sends any due alerts.
func (a *Alerter) Check() {
	readiness.mu.RLock()
	mqttUp := readiness.mqttConnected || readiness.mqttOptional
	pgUp := readiness.postgresConnected || readiness.postgresOptional
	readiness.mu.RUnlock()

	a.mu.Lock()
	now := a.now()
	pending := []*AlertPayload{
		a.observe(&a.mqtt, mqttUp, now),
		a.observe(&a.postgres, pgUp, now),
	}
	a.mu.Unlock()

	for _, p := range pending {
		if p != nil {
			a.send(*p)
		}
	}
}

func (a *Alerter) observe(w *dependencyWatch, up bool, now time.Time) *AlertPayload {
	if up {
		var recovered *AlertPayload
		if !w.up && w.alerted {
			recovered = a.payload(w.event, SeverityInfo, w.label+" connection restored", map[string]interface{}{
				"recovered_at": now.UTC().Format(time.RFC3339),
			})
		}
		w.up, w.alerted, w.downSince = true, false, time.Time{}
		return recovered
	}

	if w.up {
		w.downSince = now
	}
	w.up = false
	down := now.Sub(w.downSince)
	if w.alerted || down < w.delay {
		return nil
	}
	w.alerted = true
	return a.payload(w.event, w.severity, w.label+" unavailable", map[string]interface{}{
		"down_since":   w.downSince.UTC().Format(time.RFC3339),
		"down_seconds": int(down.Seconds()),
	})
}

func (a *Alerter) payload(event, severity, msg string, details map[string]interface{}) *AlertPayload {
	return &AlertPayload{
		Service:   a.service,
		Event:     event,
		Timestamp: a.now().UTC().Format(time.RFC3339),
		Severity:  severity,
		Message:   msg,
		Details:   details,
	}
}

// send posts asynchronously. Without a webhook the alert is only logged.
func (a *Alerter) send(p AlertPayload) {
	if a.url == "" {
		log.Printf("[ALERT] %s severity=%s msg=%q details=%v", p.Event, p.Severity, p.Message, p.Details)
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.post(p); err != nil {
			log.Printf("alert: %v", err)
		}
	}()
}

func (a *Alerter) post(p AlertPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	resp, err := a.client.Post(a.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook POST failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Run checks every interval until ctx is cancelled, then waits for
// in-flight webhook posts.
func (a *Alerter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.wg.Wait()
			return
		case <-ticker.C:
			a.Check()
		}
	}
}

// Wait blocks until pending webhook posts finish.
func (a *Alerter) Wait() {
	a.wg.Wait()
}
