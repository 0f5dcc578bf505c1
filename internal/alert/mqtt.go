package alert

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	publishTimeout = 10 * time.Second
	connectTimeout = 30 * time.Second
)

var errPublishTimeout = errors.New("timed out waiting for broker")

// MQTTPublisher publishes over an MQTT broker connection.
type MQTTPublisher struct {
	client mqtt.Client
}

// NewMQTTPublisher connects to broker with a random client ID.
func NewMQTTPublisher(broker string) (*MQTTPublisher, error) {
	clientID := "railcrack-" + uuid.New().String()

	log.Info().Str("broker", broker).Str("client_id", clientID).Msg("connecting to MQTT")
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", broker).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, token.Error())
	}
	log.Info().Str("broker", broker).Msg("connected to MQTT")

	return &MQTTPublisher{client: client}, nil
}

// Publish sends payload with QoS 1, not retained.
func (p *MQTTPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errPublishTimeout
	}
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
