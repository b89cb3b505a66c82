package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/relabs-tech/reachy_twin/internal/config"
	"github.com/relabs-tech/reachy_twin/internal/joints"
	"github.com/relabs-tech/reachy_twin/internal/link"
	"github.com/relabs-tech/reachy_twin/internal/logging"
	"github.com/relabs-tech/reachy_twin/internal/render"
)

// formatFrame renders the active joints and antennas of f as one console line.
func formatFrame(f render.Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[JOINTS] v=%-6d", f.Version)
	for _, id := range []joints.ID{joints.YawBody, joints.Stewart1, joints.Stewart2, joints.Stewart3,
		joints.Stewart4, joints.Stewart5, joints.Stewart6, joints.LeftAntenna, joints.RightAntenna} {
		v, ok := f.Joints[id.String()]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, " %s=%6.3f", id, v)
	}
	if f.PassiveSolved {
		b.WriteString(" +passive")
	}
	return b.String()
}

func formatStatus(s link.Status) string {
	return fmt.Sprintf("[LINK]   %-12s (%s)", s.Label, s.State)
}

// consoleHandler decodes payloads on topic and prints them to out. Payloads that
// do not decode are logged and skipped.
func consoleHandler(out io.Writer, topicJoints, topicStatus string, logger *zap.SugaredLogger) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		switch msg.Topic() {
		case topicJoints:
			var f render.Frame
			if err := json.Unmarshal(msg.Payload(), &f); err != nil {
				logger.Warnf("console: frame unmarshal error: %v", err)
				return
			}
			fmt.Fprintln(out, formatFrame(f))
		case topicStatus:
			var s link.Status
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				logger.Warnf("console: status unmarshal error: %v", err)
				return
			}
			fmt.Fprintln(out, formatStatus(s))
		}
	}
}

// RunConsoleMQTT prints every frame and status change published by the mirror.
func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("configuration not initialized")
	}
	logger, err := logging.New("console", cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := connectMQTT(cfg.MQTTBroker, clientID(cfg.MQTTClientIDConsole))
	if err != nil {
		return err
	}
	logger.Infof("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	handler := consoleHandler(os.Stdout, cfg.TopicJoints, cfg.TopicStatus, logger)
	for _, topic := range []string{cfg.TopicStatus, cfg.TopicJoints} {
		token := client.Subscribe(topic, 0, handler)
		token.Wait()
		if token.Error() != nil {
			return errors.Wrapf(token.Error(), "subscribe to %s", topic)
		}
		logger.Infof("console: subscribed to %s", topic)
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Infof("console: shutting down")
	client.Disconnect(250)
	return nil
}
