package mqtt

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/medrota/dispatch/core/events"
	"github.com/medrota/dispatch/core/model"
	"github.com/medrota/dispatch/infra/logger"
)

type fakeClient struct {
	published map[string][]byte
	err       error
}

func (f *fakeClient) IsConnected() bool   { return true }
func (f *fakeClient) Connect() paho.Token { return dummyToken{} }
func (f *fakeClient) Disconnect(uint)     {}
func (f *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	if f.err != nil {
		return dummyToken{err: f.err}
	}
	if f.published == nil {
		f.published = make(map[string][]byte)
	}
	f.published[topic] = payload.([]byte)
	return dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func newTestPublisher(cli pahoClient) *PahoPublisher {
	cfg := Config{}
	cfg.SetDefaults()
	return &PahoPublisher{
		cli:        cli,
		orderTopic: cfg.OrderTopic,
		alertTopic: cfg.AlertTopic,
		log:        logger.NopLogger{},
	}
}

func TestPublishAssignment(t *testing.T) {
	cli := &fakeClient{}
	p := newTestPublisher(cli)
	err := p.PublishAssignment(events.AssignmentEvent{
		RequestID: "r1", VehicleID: "v1", DriverID: "d1", At: time.Now(),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	payload, ok := cli.published["medrota/orders/v1"]
	if !ok {
		t.Fatalf("published topics: %v", cli.published)
	}
	var got orderPayload
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.RequestID != "r1" || got.DriverID != "d1" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestPublishAlertTopicPerType(t *testing.T) {
	cli := &fakeClient{}
	p := newTestPublisher(cli)
	a := model.Alert{ID: "a1", Type: model.AlertDriverLicense, Severity: model.SeverityHigh}
	if err := p.PublishAlert(a, false); err != nil {
		t.Fatalf("publish: %v", err)
	}
	for topic := range cli.published {
		if !strings.HasSuffix(topic, string(model.AlertDriverLicense)) {
			t.Fatalf("topic = %s", topic)
		}
	}
}

func TestClientOptionsTLSRequiresValidCA(t *testing.T) {
	cfg := Config{Broker: "ssl://broker:8883", UseTLS: true, CABundle: "/does/not/exist"}
	if _, err := NewClientOptions(cfg); err == nil {
		t.Fatal("want error for missing ca bundle")
	}
}
