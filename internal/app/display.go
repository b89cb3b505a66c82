package app

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/reachy_twin/internal/config"
	"github.com/relabs-tech/reachy_twin/internal/geometry"
	"github.com/relabs-tech/reachy_twin/internal/joints"
	"github.com/relabs-tech/reachy_twin/internal/link"
	"github.com/relabs-tech/reachy_twin/internal/logging"
	"github.com/relabs-tech/reachy_twin/internal/render"
)

const (
	panelWidth  = 128
	panelHeight = 64
	lineHeight  = 13
)

// displayData holds the latest frame and link status received over MQTT.
type displayData struct {
	mu sync.RWMutex

	frame      render.Frame
	haveFrame  bool
	status     link.Status
	haveStatus bool
}

type displaySnapshot struct {
	frame      render.Frame
	haveFrame  bool
	status     link.Status
	haveStatus bool
}

func (d *displayData) snapshot() displaySnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return displaySnapshot{
		frame:      d.frame,
		haveFrame:  d.haveFrame,
		status:     d.status,
		haveStatus: d.haveStatus,
	}
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// panelLines returns the text for one screen, at most four lines.
func panelLines(content string, s displaySnapshot) []string {
	switch content {
	case config.DisplayHead:
		if !s.haveFrame {
			return []string{"", "Head pose", "Waiting..."}
		}
		pose, ok := geometry.Mat4FromSlice(s.frame.HeadPose)
		if !ok {
			return []string{
				"Head",
				fmt.Sprintf("Body: %6.1f", degrees(s.frame.Joints[joints.YawBody.String()])),
				"No pose",
			}
		}
		roll, pitch, yaw := geometry.EulerFromRotationZYX(pose.Rotation())
		t := pose.Translation()
		return []string{
			fmt.Sprintf("R:%5.1f P:%5.1f", degrees(roll), degrees(pitch)),
			fmt.Sprintf("Y:%5.1f", degrees(yaw)),
			fmt.Sprintf("X:%5.1f Y:%5.1f", t.X*1000, t.Y*1000),
			fmt.Sprintf("Z:%5.1f mm", t.Z*1000),
		}

	case config.DisplayAntennas:
		if !s.haveFrame {
			return []string{"", "Antennas", "Waiting..."}
		}
		return []string{
			"Antennas",
			fmt.Sprintf("L: %6.1f", degrees(s.frame.Joints[joints.LeftAntenna.String()])),
			fmt.Sprintf("R: %6.1f", degrees(s.frame.Joints[joints.RightAntenna.String()])),
		}

	default:
		label := "Offline"
		if s.haveStatus {
			label = s.status.Label
		}
		lines := []string{"Reachy Mini", label}
		if s.haveFrame {
			lines = append(lines,
				fmt.Sprintf("v%d", s.frame.Version),
				fmt.Sprintf("Yaw: %6.1f", degrees(s.frame.Joints[joints.YawBody.String()])))
		} else {
			lines = append(lines, "Waiting...")
		}
		return lines
	}
}

// renderPanel draws up to four lines of text onto a blank panel image.
func renderPanel(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, panelWidth, panelHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i >= panelHeight/lineHeight {
			break
		}
		drawer.Dot = fixed.P(0, (i+1)*lineHeight)
		drawer.DrawString(line)
	}
	return img
}

func drawPanel(dev display.Drawer, lines []string) error {
	return dev.Draw(dev.Bounds(), renderPanel(lines), image.Point{})
}

func showSplash(dev display.Drawer) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, panelWidth, panelHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(15, 26)
	drawer.DrawString("Reachy Mini")

	drawer.Dot = fixed.P(25, 43)
	drawer.DrawString("Digital")

	drawer.Dot = fixed.P(35, 56)
	drawer.DrawString("twin")

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

// displayHandler stores frames and status updates in data.
func displayHandler(data *displayData, topicJoints, topicStatus string, logger *zap.SugaredLogger) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		switch msg.Topic() {
		case topicJoints:
			var f render.Frame
			if err := json.Unmarshal(msg.Payload(), &f); err != nil {
				logger.Warnf("display: frame unmarshal error: %v", err)
				return
			}
			data.mu.Lock()
			data.frame = f
			data.haveFrame = true
			data.mu.Unlock()
		case topicStatus:
			var s link.Status
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				logger.Warnf("display: status unmarshal error: %v", err)
				return
			}
			data.mu.Lock()
			data.status = s
			data.haveStatus = true
			data.mu.Unlock()
		}
	}
}

// RunDisplay shows the mirrored robot on an SSD1306 OLED at the default I2C address.
func RunDisplay() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("configuration not initialized")
	}
	logger, err := logging.New("display", cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize periph")
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return errors.Wrap(err, "failed to open I2C bus")
	}
	defer bus.Close()

	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return errors.Wrap(err, "failed to initialize display")
	}
	defer func() { _ = dev.Halt() }()
	logger.Infof("display: initialized, showing %q", cfg.DisplayContent)

	if err := showSplash(dev); err != nil {
		logger.Warnf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	client, err := connectMQTT(cfg.MQTTBroker, clientID(cfg.MQTTClientIDDisplay))
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	logger.Infof("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	handler := displayHandler(data, cfg.TopicJoints, cfg.TopicStatus, logger)
	for _, topic := range []string{cfg.TopicStatus, cfg.TopicJoints} {
		token := client.Subscribe(topic, 0, handler)
		token.Wait()
		if token.Error() != nil {
			return errors.Wrapf(token.Error(), "subscribe to %s", topic)
		}
		logger.Infof("display: subscribed to %s", topic)
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	logger.Infof("display: starting update loop")
	for {
		select {
		case <-sigCh:
			logger.Infof("display: shutting down")
			return nil
		case <-ticker.C:
			if err := drawPanel(dev, panelLines(cfg.DisplayContent, data.snapshot())); err != nil {
				logger.Errorf("display: error updating display: %v", err)
			}
		}
	}
}
