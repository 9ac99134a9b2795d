// Package mqtt publishes station snapshots to an MQTT broker so home
// automation systems can consume them without polling the vendor API.
package mqtt

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"path"
	"strconv"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type Config struct {
	BrokerURL   string
	Username    string
	Password    string
	TopicPrefix string
}

// Publisher pushes retained JSON snapshots, one topic per station.
type Publisher struct {
	client paho.Client
	prefix string
}

func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("mqtt broker url is required")
	}
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "soliscloud"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(randomClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt: %w", token.Error())
	}
	return &Publisher{client: client, prefix: prefix}, nil
}

// PublishStation publishes a retained snapshot for one station, so
// subscribers joining later still see the latest state.
func (p *Publisher) PublishStation(stationID int64, payload []byte) error {
	topic := path.Join(p.prefix, "station", strconv.FormatInt(stationID, 10), "state")
	if token := p.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func randomClientID() string {
	buf := make([]byte, 9)
	if _, err := rand.Read(buf); err != nil {
		return "soliscloud-exporter"
	}
	return "soliscloud-" + base64.RawURLEncoding.EncodeToString(buf)
}
