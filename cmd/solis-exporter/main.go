// Command solis-exporter polls the SolisCloud API and exposes station
// metrics over Prometheus, optionally mirroring snapshots to MQTT and
// raw payloads to object storage.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hultenvp/soliscloud-golang/internal/archive"
	"github.com/hultenvp/soliscloud-golang/internal/collector"
	"github.com/hultenvp/soliscloud-golang/internal/config"
	"github.com/hultenvp/soliscloud-golang/internal/logging"
	"github.com/hultenvp/soliscloud-golang/internal/mqtt"
	"github.com/hultenvp/soliscloud-golang/internal/server"
	"github.com/hultenvp/soliscloud-golang/soliscloud"
)

func main() {
	configPath := flag.String("config", envOrDefault("SOLIS_CONFIG", config.DefaultPath), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("init logging", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	keyID, secret, err := cfg.API.Credentials()
	if err != nil {
		log.Fatal("read credentials", zap.Error(err))
	}

	client, err := soliscloud.New(soliscloud.Config{
		KeyID:   keyID,
		Secret:  secret,
		Domain:  cfg.API.Domain,
		Timeout: cfg.API.Timeout(),
	},
		soliscloud.WithLimiter(soliscloud.NewLimiter(cfg.API.RateLimit, time.Second)),
		soliscloud.WithLogger(log),
	)
	if err != nil {
		log.Fatal("init api client", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(soliscloud.MetricsCollectors()...)
	registry.MustRegister(collector.NewStationCollector(client, log, cfg.Poll.StationIDs, cfg.Poll.NMICode))

	var publisher *mqtt.Publisher
	if cfg.MQTT != nil {
		publisher, err = newPublisher(cfg.MQTT)
		if err != nil {
			log.Fatal("init mqtt", zap.Error(err))
		}
		defer publisher.Close()
	}

	var store *archive.S3Store
	if cfg.Archive != nil {
		store, err = newStore(cfg.Archive)
		if err != nil {
			log.Fatal("init archive", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if publisher != nil || store != nil {
		go pollLoop(ctx, log, client, cfg.Poll, publisher, store)
	}

	httpServer := server.NewHTTPServer(cfg.HTTPAddr, registry)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && ctx.Err() == nil {
			log.Fatal("http serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
}

func newPublisher(cfg *config.MQTTConfig) (*mqtt.Publisher, error) {
	var username, password string
	var err error
	if cfg.UsernameFile != "" {
		if username, err = config.ReadSecretFile(cfg.UsernameFile); err != nil {
			return nil, err
		}
	}
	if cfg.PasswordFile != "" {
		if password, err = config.ReadSecretFile(cfg.PasswordFile); err != nil {
			return nil, err
		}
	}
	return mqtt.NewPublisher(mqtt.Config{
		BrokerURL:   cfg.BrokerURL,
		Username:    username,
		Password:    password,
		TopicPrefix: cfg.TopicPrefix,
	})
}

func newStore(cfg *config.ArchiveConfig) (*archive.S3Store, error) {
	accessKey, err := config.ReadSecretFile(cfg.AccessKeyFile)
	if err != nil {
		return nil, err
	}
	secretKey, err := config.ReadSecretFile(cfg.SecretKeyFile)
	if err != nil {
		return nil, err
	}
	return archive.NewS3Store(archive.Config{
		Endpoint:  cfg.Endpoint,
		Bucket:    cfg.Bucket,
		Prefix:    cfg.Prefix,
		Region:    cfg.Region,
		AccessKey: accessKey,
		SecretKey: secretKey,
	})
}

// pollLoop periodically fetches station details and fans them out to
// the configured sinks.
func pollLoop(ctx context.Context, log *zap.Logger, client *soliscloud.Client, poll config.PollConfig, publisher *mqtt.Publisher, store *archive.S3Store) {
	ticker := time.NewTicker(poll.Interval())
	defer ticker.Stop()

	for {
		pollOnce(ctx, log, client, poll, publisher, store)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pollOnce(ctx context.Context, log *zap.Logger, client *soliscloud.Client, poll config.PollConfig, publisher *mqtt.Publisher, store *archive.S3Store) {
	ids := poll.StationIDs
	if len(ids) == 0 {
		discovered, err := client.StationIDs(ctx, poll.NMICode)
		if err != nil {
			log.Warn("station discovery failed", zap.Error(err))
			return
		}
		ids = discovered
	}

	for _, id := range ids {
		detail, err := client.StationDetail(ctx, soliscloud.StationRef{ID: id})
		if err != nil {
			log.Warn("station detail fetch failed",
				zap.Int64("station_id", id), zap.Error(err))
			continue
		}

		if publisher != nil {
			if err := publisher.PublishStation(id, compact(detail)); err != nil {
				log.Warn("mqtt publish failed",
					zap.Int64("station_id", id), zap.Error(err))
			}
		}
		if store != nil {
			if err := store.Save(ctx, "stationDetail", time.Now(), detail); err != nil {
				log.Warn("archive write failed",
					zap.Int64("station_id", id), zap.Error(err))
			}
		}
	}
}

func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
