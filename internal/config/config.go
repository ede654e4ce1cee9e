// Package config loads the scriptgraph.yaml service configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied when scriptgraph.yaml leaves a field empty.
const (
	DefaultHTTPPort          = 8080
	DefaultRequestTopic      = "scriptgraph/compile/requests"
	DefaultResultTopicPrefix = "scriptgraph/compile/results"
	DefaultMQTTClientID      = "scriptgraphd"
	DefaultMaxDocumentBytes  = 4 << 20
)

type ServiceConfig struct {
	Version int `yaml:"version"`
	Service struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"service"`
	Network struct {
		HTTPPort int `yaml:"http_port"`
	} `yaml:"network"`
	Compiler struct {
		MaxDocumentBytes int64 `yaml:"max_document_bytes"`
	} `yaml:"compiler"`
	MQTT struct {
		Enabled           bool   `yaml:"enabled"`
		Broker            string `yaml:"broker"`
		ClientID          string `yaml:"client_id"`
		Username          string `yaml:"username"`
		RequestTopic      string `yaml:"request_topic"`
		ResultTopicPrefix string `yaml:"result_topic_prefix"`
	} `yaml:"mqtt"`
	Postgres struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"postgres"`
	TLS struct {
		CertFile string `yaml:"cert_file"`
		KeyFile  string `yaml:"key_file"`
	} `yaml:"tls"`
}

// HTTPPort returns the configured API port, defaulting to 8080 if not set.
func (c *ServiceConfig) HTTPPort() int {
	if c.Network.HTTPPort == 0 {
		return DefaultHTTPPort
	}
	return c.Network.HTTPPort
}

// ServiceID identifies this instance in persisted events. Falls back to the
// service name, then the host name.
func (c *ServiceConfig) ServiceID() string {
	if c.Service.ID != "" {
		return c.Service.ID
	}
	if c.Service.Name != "" {
		return c.Service.Name
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "scriptgraphd"
	}
	return host
}

func (c *ServiceConfig) MaxDocumentBytes() int64 {
	if c.Compiler.MaxDocumentBytes <= 0 {
		return DefaultMaxDocumentBytes
	}
	return c.Compiler.MaxDocumentBytes
}

func (c *ServiceConfig) RequestTopic() string {
	if c.MQTT.RequestTopic == "" {
		return DefaultRequestTopic
	}
	return c.MQTT.RequestTopic
}

// ResultTopicPrefix is returned without a trailing slash.
func (c *ServiceConfig) ResultTopicPrefix() string {
	if c.MQTT.ResultTopicPrefix == "" {
		return DefaultResultTopicPrefix
	}
	return strings.TrimRight(c.MQTT.ResultTopicPrefix, "/")
}

func (c *ServiceConfig) MQTTClientID() string {
	if c.MQTT.ClientID == "" {
		return DefaultMQTTClientID
	}
	return c.MQTT.ClientID
}

// TLSFiles returns the certificate and key the API serves with.
// SCRIPTGRAPH_TLS_CERT and SCRIPTGRAPH_TLS_KEY override the file.
func (c *ServiceConfig) TLSFiles() (certFile, keyFile string) {
	return EnvOr("SCRIPTGRAPH_TLS_CERT", c.TLS.CertFile), EnvOr("SCRIPTGRAPH_TLS_KEY", c.TLS.KeyFile)
}

// Default returns the configuration used when no file is given.
func Default() *ServiceConfig {
	cfg := &ServiceConfig{Version: 1}
	cfg.Service.Name = "scriptgraph"
	return cfg
}

func LoadServiceConfig(path string) (*ServiceConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ServiceConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported scriptgraph.yaml version: %d", cfg.Version)
	}

	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return nil, fmt.Errorf("scriptgraph.yaml: mqtt.enabled requires mqtt.broker")
	}

	if (cfg.TLS.CertFile == "") != (cfg.TLS.KeyFile == "") {
		return nil, fmt.Errorf("scriptgraph.yaml: tls.cert_file and tls.key_file must be set together")
	}

	return &cfg, nil
}
