package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Topic layout shared with the dashboard clients. Keyed by user so a
// subscriber only sees its own conversation events.
const (
	typingTopicPrefix   = "ai/chatbot/typing/"
	responseTopicPrefix = "ai/chatbot/response/"
	statusTopic         = "ai/system/status"
)

// MQTTConfig carries broker settings read from the environment.
type MQTTConfig struct {
	BrokerURL string
	Username  string
	Password  string
	ClientID  string
}

// MQTTBridge publishes chat events over an autopaho connection that
// reconnects in the background on broker loss.
type MQTTBridge struct {
	cfg MQTTConfig
	log *logrus.Logger
	cm  *autopaho.ConnectionManager
}

// NewMQTTBridge connects to the broker. The initial connection is
// awaited briefly; if the broker is slow the bridge still comes up and
// autopaho keeps retrying behind it.
func NewMQTTBridge(ctx context.Context, cfg MQTTConfig, log *logrus.Logger) (*MQTTBridge, error) {
	brokerURL, err := url.Parse(cfg.BrokerURL)
	if err != nil {
		return nil, fmt.Errorf("parse mqtt broker url: %w", err)
	}

	if cfg.ClientID == "" {
		cfg.ClientID = "plantcare-ai-" + uuid.NewString()[:8]
	}

	b := &MQTTBridge{cfg: cfg, log: log}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: cfg.Username,
		ConnectPassword: []byte(cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   statusTopic,
			Payload: mustJSON(map[string]any{"status": "offline", "service": "chatbot"}),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			log.WithField("broker", cfg.BrokerURL).Info("mqtt connected")
			b.publishStatus(ctx, cm, "online")
		},
		OnConnectError: func(err error) {
			log.WithError(err).Warn("mqtt connection error")
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cfg.ClientID,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	b.cm = cm

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		log.WithError(err).Warn("mqtt initial connection timed out, retrying in background")
	}

	return b, nil
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func (b *MQTTBridge) publish(ctx context.Context, topic string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mqtt payload: %w", err)
	}

	// At-most-once: subscribers tolerate missed messages, so QoS 0
	// keeps the publish off the request's critical path.
	_, err = b.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: raw,
		QoS:     0,
	})
	return err
}

func (b *MQTTBridge) PublishTyping(ctx context.Context, userID string, isTyping bool) error {
	return b.publish(ctx, typingTopicPrefix+userID, TypingEvent{IsTyping: isTyping})
}

func (b *MQTTBridge) PublishAnswer(ctx context.Context, userID string, ev AnswerEvent) error {
	return b.publish(ctx, responseTopicPrefix+userID, ev)
}

func (b *MQTTBridge) publishStatus(ctx context.Context, cm *autopaho.ConnectionManager, status string) {
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   statusTopic,
		Payload: mustJSON(map[string]any{"status": status, "service": "chatbot"}),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		b.log.WithError(err).Warn("mqtt status publish failed")
	}
}

func (b *MQTTBridge) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := b.cm.AwaitConnection(ctx); err != nil {
		return errors.New("mqtt broker not connected")
	}
	return nil
}

func (b *MQTTBridge) Connected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	return b.cm.AwaitConnection(ctx) == nil
}

// Disconnect publishes the offline status before closing.
func (b *MQTTBridge) Disconnect(ctx context.Context) error {
	b.publishStatus(ctx, b.cm, "offline")
	return b.cm.Disconnect(ctx)
}
