// Package mqtt publishes dispatch orders and alert notices to the
// fleet broker. The dispatch core works without it; a nil publisher
// simply disables fleet notification.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/medrota/dispatch/core/events"
	"github.com/medrota/dispatch/core/logger"
	"github.com/medrota/dispatch/core/model"
	infralogger "github.com/medrota/dispatch/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled    bool   `json:"enabled"`
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	OrderTopic string `json:"order_topic"`
	AlertTopic string `json:"alert_topic"`
	QoS        byte   `json:"qos"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.OrderTopic == "" {
		c.OrderTopic = "medrota/orders"
	}
	if c.AlertTopic == "" {
		c.AlertTopic = "medrota/alerts"
	}
	if c.ClientID == "" {
		c.ClientID = "medrota-dispatch"
	}
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoPublisher publishes orders and alerts over Eclipse Paho.
type PahoPublisher struct {
	cli        pahoClient
	orderTopic string
	alertTopic string
	qos        byte
	log        logger.Logger
}

// NewPahoPublisher connects to the MQTT broker.
func NewPahoPublisher(cfg Config) (*PahoPublisher, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := infralogger.New("mqtt-publisher")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &PahoPublisher{
		cli:        c,
		orderTopic: cfg.OrderTopic,
		alertTopic: cfg.AlertTopic,
		qos:        cfg.QoS,
		log:        log,
	}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.CABundle != "" {
			ca, err := os.ReadFile(cfg.CABundle)
			if err != nil {
				return nil, fmt.Errorf("read ca bundle: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(ca) {
				return nil, fmt.Errorf("invalid ca bundle %s", cfg.CABundle)
			}
			tlsCfg.RootCAs = pool
		}
		if cfg.ClientCert != "" && cfg.ClientKey != "" {
			cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
			if err != nil {
				return nil, fmt.Errorf("load client cert: %w", err)
			}
			tlsCfg.Certificates = []tls.Certificate{cert}
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// orderPayload is the wire shape of a dispatch order.
type orderPayload struct {
	RequestID string `json:"request_id"`
	VehicleID string `json:"vehicle_id"`
	DriverID  string `json:"driver_id"`
	At        string `json:"at"`
}

// PublishAssignment sends the dispatch order to the assigned vehicle's
// topic.
func (p *PahoPublisher) PublishAssignment(ev events.AssignmentEvent) error {
	payload, err := json.Marshal(orderPayload{
		RequestID: ev.RequestID,
		VehicleID: ev.VehicleID,
		DriverID:  ev.DriverID,
		At:        ev.At.Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s", p.orderTopic, ev.VehicleID)
	if token := p.cli.Publish(topic, p.qos, false, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// alertPayload is the wire shape of an alert notice.
type alertPayload struct {
	model.Alert
	Cleared bool `json:"cleared"`
}

// PublishAlert sends the alert notice to the alert topic.
func (p *PahoPublisher) PublishAlert(a model.Alert, cleared bool) error {
	payload, err := json.Marshal(alertPayload{Alert: a, Cleared: cleared})
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s", p.alertTopic, a.Type)
	if token := p.cli.Publish(topic, p.qos, false, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Close disconnects from the broker.
func (p *PahoPublisher) Close() {
	p.cli.Disconnect(250)
}
