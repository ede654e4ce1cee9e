package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/ScriptGraph/internal/api"
	"github.com/AaronLay10/ScriptGraph/internal/config"
	"github.com/AaronLay10/ScriptGraph/internal/events"
	"github.com/AaronLay10/ScriptGraph/internal/mqtt"
	"github.com/AaronLay10/ScriptGraph/internal/service"
	"github.com/AaronLay10/ScriptGraph/internal/storage/postgres"
	"github.com/AaronLay10/ScriptGraph/internal/version"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:           "scriptgraphd",
		Short:         "Serve the script graph compiler over HTTP and MQTT",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.EnvOr("SCRIPTGRAPH_CONFIG", ""), "Path to scriptgraph.yaml")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("scriptgraphd: %v", err)
	}
}

func run(ctx context.Context, configPath string) error {
	events.SetOutput(os.Stdout)

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadServiceConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "scriptgraphd starting", map[string]interface{}{
		"service":    cfg.Service.Name,
		"service_id": cfg.ServiceID(),
		"version":    version.Version,
		"hostname":   hostname,
		"pid":        os.Getpid(),
	})

	alertCfg, err := api.AlertConfigFromEnv()
	if err != nil {
		return err
	}

	var store *postgres.Client
	if cfg.Postgres.Enabled {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := postgres.New(pingCtx, cfg.ServiceID())
		cancel()
		if err != nil {
			events.Emit("error", "system.error", "postgres unavailable, events are not persisted", map[string]interface{}{
				"error": err.Error(),
			})
			api.SetPostgresState(false, true)
		} else {
			store = client
			events.SetStore(client)
			api.SetPostgresState(true, false)
			defer client.Close()
		}
	} else {
		api.SetPostgresState(false, true)
	}

	svc := service.New(service.WithMaxDocumentBytes(cfg.MaxDocumentBytes()))

	if cfg.MQTT.Enabled {
		password, err := config.ResolveSecret("MQTT_PASSWORD")
		if err != nil {
			return err
		}
		bus := mqtt.NewClient(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTTClientID(),
			Username: cfg.MQTT.Username,
			Password: password,
		})
		worker := mqtt.NewWorker(bus, svc, cfg.RequestTopic(), cfg.ResultTopicPrefix())

		// Subscriptions do not survive a clean-session reconnect.
		bus.OnConnect(func() {
			api.SetMQTTState(true, false)
			go func() {
				if err := worker.Start(ctx); err != nil {
					log.Printf("mqtt: failed to subscribe to %s: %v", cfg.RequestTopic(), err)
				}
			}()
		})
		bus.OnConnectionLost(func(error) {
			api.SetMQTTState(false, false)
		})

		api.SetMQTTState(false, false)
		bus.ConnectWithLog()
		defer bus.Disconnect()
	} else {
		api.SetMQTTState(false, true)
	}

	var querier api.EventQuerier
	if store != nil {
		querier = store
	}
	server := api.NewServer(svc, querier, cfg.MaxDocumentBytes())
	certFile, keyFile := cfg.TLSFiles()
	server.SetTLS(api.TLSFiles{CertFile: certFile, KeyFile: keyFile})

	alerter := api.NewAlerter(cfg.ServiceID(), alertCfg)
	go alerter.Run(ctx, 5*time.Second)

	api.SetServiceReady(true)
	err = server.ListenAndServe(ctx, cfg.HTTPPort())
	api.SetServiceReady(false)

	events.Emit("info", "system.shutdown", "scriptgraphd stopping", nil)
	return err
}
