// Package mqtt publishes logged recognition events for home-automation
// consumers. The publisher is optional; a nil *Publisher is safe to call.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"facetrack-go/config"
	"facetrack-go/internal/core/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Publisher wraps the MQTT client and its configuration.
type Publisher struct {
	cfg    config.MQTTConfig
	client mqtt.Client
}

// eventMessage is the payload published for each logged recognition event.
type eventMessage struct {
	ID           uint      `json:"id"`
	SessionID    string    `json:"session_id"`
	PersonID     *uint     `json:"person_id"`
	PersonName   string    `json:"person_name"`
	Confidence   float64   `json:"confidence"`
	IsRecognized bool      `json:"is_recognized"`
	DetectedAt   time.Time `json:"detected_at"`
}

// NewPublisher creates and configures a new MQTT publisher. Returns nil when
// MQTT is disabled in the configuration.
func NewPublisher(cfg config.MQTTConfig) (*Publisher, error) {
	if !cfg.Enabled {
		log.Info("MQTT publisher is disabled in the configuration.")
		return nil, nil
	}

	p := &Publisher{cfg: cfg}

	brokerURL := fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Errorf("MQTT connection lost: %v. Attempting to reconnect...", err)
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Infof("Successfully connected to MQTT broker: %s", brokerURL)
	})
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	p.client = mqtt.NewClient(opts)
	return p, nil
}

// Start connects to the MQTT broker.
func (p *Publisher) Start() error {
	if p == nil || p.client == nil {
		return fmt.Errorf("MQTT publisher not initialized (likely disabled)")
	}
	brokerURL := fmt.Sprintf("tcp://%s:%d", p.cfg.Broker, p.cfg.Port)
	log.Infof("Attempting to connect to MQTT broker: %s", brokerURL)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		log.Errorf("Failed to connect to MQTT broker %s: %v", brokerURL, token.Error())
		return token.Error()
	}
	return nil
}

// Stop disconnects the MQTT client.
func (p *Publisher) Stop() {
	if p == nil || p.client == nil || !p.client.IsConnected() {
		return
	}
	log.Info("Disconnecting MQTT publisher...")
	p.client.Disconnect(250)
	log.Info("MQTT publisher disconnected.")
}

// PublishEvent publishes one logged recognition event to the configured
// topic. Best effort: failures are logged, never surfaced to the caller.
func (p *Publisher) PublishEvent(event models.RecognitionEvent) {
	if p == nil || p.client == nil || !p.client.IsConnected() {
		return
	}

	msg := eventMessage{
		ID:           event.ID,
		SessionID:    event.SessionID,
		PersonID:     event.PersonID,
		PersonName:   event.PersonName,
		Confidence:   event.Confidence,
		IsRecognized: event.IsRecognized,
		DetectedAt:   event.DetectedAt,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal MQTT event message: %v", err)
		return
	}

	if token := p.client.Publish(p.cfg.Topic, 0, false, payload); token.Wait() && token.Error() != nil {
		log.Warnf("Failed to publish recognition event %d to topic '%s': %v", event.ID, p.cfg.Topic, token.Error())
	}
}
