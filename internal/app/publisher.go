package app

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/relabs-tech/reachy_twin/internal/link"
	"github.com/relabs-tech/reachy_twin/internal/render"
)

// Publisher forwards frames and connection status to downstream consumers.
type Publisher interface {
	PublishFrame(f render.Frame)
	PublishStatus(s link.Status)
	Close() error
}

// mqttPublisher publishes retained JSON messages so late subscribers get the
// current state immediately.
type mqttPublisher struct {
	client      mqtt.Client
	topicJoints string
	topicStatus string
	logger      *zap.SugaredLogger
}

// clientID suffixes base with a short random id so several instances can share
// a broker.
func clientID(base string) string {
	return base + "-" + uuid.NewString()[:8]
}

// connectMQTT connects to broker and returns the client.
func connectMQTT(broker, id string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(id).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "connect to MQTT broker %s", broker)
	}
	return client, nil
}

// NewMQTTPublisher connects to broker and publishes to the given topics.
func NewMQTTPublisher(broker, baseClientID, topicJoints, topicStatus string, logger *zap.SugaredLogger) (Publisher, error) {
	client, err := connectMQTT(broker, clientID(baseClientID))
	if err != nil {
		return nil, err
	}
	logger.Infof("mqtt: connected to broker at %s", broker)
	return &mqttPublisher{
		client:      client,
		topicJoints: topicJoints,
		topicStatus: topicStatus,
		logger:      logger,
	}, nil
}

func (p *mqttPublisher) publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Errorf("mqtt: marshal for %s: %v", topic, err)
		return
	}
	token := p.client.Publish(topic, 0, true, payload)
	go func() {
		if token.WaitTimeout(2*time.Second) && token.Error() != nil {
			p.logger.Warnf("mqtt: publish to %s failed: %v", topic, token.Error())
		}
	}()
}

func (p *mqttPublisher) PublishFrame(f render.Frame) {
	p.publish(p.topicJoints, f)
}

func (p *mqttPublisher) PublishStatus(s link.Status) {
	p.publish(p.topicStatus, s)
}

func (p *mqttPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
