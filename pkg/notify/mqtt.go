package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/wattsonlabs/wattson/pkg/model"
)

const publishTimeout = 5 * time.Second

// MQTTNotifier publishes alerts to a home-automation MQTT broker so
// dashboards and automations can react to them.
type MQTTNotifier struct {
	client      mqtt.Client
	topicPrefix string
}

// NewMQTTNotifier connects to the broker and returns a notifier.
// topicPrefix defaults to "wattson/alerts".
func NewMQTTNotifier(broker, username, password, topicPrefix string) (*MQTTNotifier, error) {
	if broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required")
	}
	if topicPrefix == "" {
		topicPrefix = "wattson/alerts"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", broker))
	opts.SetClientID("wattson")
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if username != "" {
		opts.SetUsername(username)
	}
	if password != "" {
		opts.SetPassword(password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return &MQTTNotifier{client: client, topicPrefix: topicPrefix}, nil
}

func (m *MQTTNotifier) Name() string { return "mqtt" }

// Send publishes the alert as JSON to <prefix>/<userID>/<severity>.
func (m *MQTTNotifier) Send(ctx context.Context, alert model.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/%s", m.topicPrefix, alert.UserID, alert.Severity)
	token := m.client.Publish(topic, 0, false, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTTNotifier) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
	}
}
