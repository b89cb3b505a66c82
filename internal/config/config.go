package config

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Config holds all application configuration values.
type Config struct {
	// Daemon
	DaemonHost      string
	DaemonPort      int
	DaemonTransport string // "websocket" or "http"
	StreamFrequency int    // Hz requested from the websocket stream
	PollInterval    int    // milliseconds between HTTP polls

	// Solver
	EnablePassiveJoints bool
	EnableHeadPose      bool
	CalibrationFile     string

	// Reconnect
	ReconnectMaxAttempts int
	ReconnectBaseDelay   int // milliseconds
	ReconnectGrowth      float64
	ReconnectMaxDelay    int // milliseconds

	// Render
	ApplyRateHz int

	// MQTT
	MQTTBroker          string
	MQTTClientIDMirror  string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string

	// Topics
	TopicJoints string
	TopicStatus string

	// Web Server
	WebServerPort int
	WebStaticDir  string

	// Display
	DisplayUpdateInterval int    // milliseconds
	DisplayContent        string // what to show: "status", "head", "antennas"

	// Mock daemon
	MockDaemonPort int

	LogLevel string
}

// Transport names.
const (
	TransportWebSocket = "websocket"
	TransportHTTP      = "http"
)

// Display content names.
const (
	DisplayStatus   = "status"
	DisplayHead     = "head"
	DisplayAntennas = "antennas"
)

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		DaemonHost:      "localhost",
		DaemonPort:      8000,
		DaemonTransport: TransportWebSocket,
		StreamFrequency: 20,
		PollInterval:    50,

		EnablePassiveJoints: true,
		EnableHeadPose:      true,

		ReconnectMaxAttempts: 3,
		ReconnectBaseDelay:   1000,
		ReconnectGrowth:      2,
		ReconnectMaxDelay:    10000,

		ApplyRateHz: 20,

		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDMirror:  "reachy-mirror",
		MQTTClientIDConsole: "reachy-console",
		MQTTClientIDDisplay: "reachy-display",

		TopicJoints: "reachy/joints",
		TopicStatus: "reachy/status",

		WebServerPort: 8080,
		WebStaticDir:  "web",

		DisplayUpdateInterval: 200,
		DisplayContent:        DisplayStatus,

		MockDaemonPort: 8000,

		LogLevel: "info",
	}
}

// ReconnectBase returns ReconnectBaseDelay as a duration.
func (c *Config) ReconnectBase() time.Duration {
	return time.Duration(c.ReconnectBaseDelay) * time.Millisecond
}

// ReconnectCap returns ReconnectMaxDelay as a duration.
func (c *Config) ReconnectCap() time.Duration {
	return time.Duration(c.ReconnectMaxDelay) * time.Millisecond
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal and Get.
//   - configOnce makes InitGlobal idempotent.
//   - configMu lets many readers call Get concurrently.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default. Blank lines and lines starting
// with # are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, errors.Wrapf(err, "config line %d", lineNum)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Daemon
	case "DAEMON_HOST":
		c.DaemonHost = value
	case "DAEMON_PORT":
		c.DaemonPort, err = intInRange(key, value, 1, 65535)
	case "DAEMON_TRANSPORT":
		c.DaemonTransport = strings.ToLower(value)
	case "STREAM_FREQUENCY":
		c.StreamFrequency, err = intInRange(key, value, 1, 100)
	case "POLL_INTERVAL":
		c.PollInterval, err = intInRange(key, value, 10, 60000)

	// Solver
	case "ENABLE_PASSIVE_JOINTS":
		c.EnablePassiveJoints, err = boolValue(key, value)
	case "ENABLE_HEAD_POSE":
		c.EnableHeadPose, err = boolValue(key, value)
	case "CALIBRATION_FILE":
		c.CalibrationFile = value

	// Reconnect
	case "RECONNECT_MAX_ATTEMPTS":
		c.ReconnectMaxAttempts, err = intInRange(key, value, 0, 1000)
	case "RECONNECT_BASE_DELAY":
		c.ReconnectBaseDelay, err = intInRange(key, value, 1, 600000)
	case "RECONNECT_GROWTH":
		c.ReconnectGrowth, err = strconv.ParseFloat(value, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %s %q", key, value)
		}
		if c.ReconnectGrowth < 1 {
			return errors.Errorf("%s must be >= 1, got %g", key, c.ReconnectGrowth)
		}
	case "RECONNECT_MAX_DELAY":
		c.ReconnectMaxDelay, err = intInRange(key, value, 1, 3600000)

	// Render
	case "APPLY_RATE_HZ":
		c.ApplyRateHz, err = intInRange(key, value, 1, 120)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_MIRROR":
		c.MQTTClientIDMirror = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_JOINTS":
		c.TopicJoints = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = intInRange(key, value, 1, 65535)
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = intInRange(key, value, 10, 60000)
	case "DISPLAY_CONTENT":
		c.DisplayContent = strings.ToLower(value)

	case "MOCK_DAEMON_PORT":
		c.MockDaemonPort, err = intInRange(key, value, 1, 65535)

	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return errors.Errorf("unknown config key: %q", key)
	}

	return err
}

func intInRange(key, value string, min, max int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", key, value)
	}
	if v < min || v > max {
		return 0, errors.Errorf("%s must be %d-%d, got %d", key, min, max, v)
	}
	return v, nil
}

func boolValue(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.Wrapf(err, "invalid %s %q", key, value)
	}
	return v, nil
}

// validate checks that required fields are set and enumerations are known.
func (c *Config) validate() error {
	if c.DaemonHost == "" {
		return errors.New("DAEMON_HOST is required")
	}
	if c.MQTTBroker == "" {
		return errors.New("MQTT_BROKER is required")
	}
	if c.TopicJoints == "" || c.TopicStatus == "" {
		return errors.New("TOPIC_JOINTS and TOPIC_STATUS are required")
	}
	switch c.DaemonTransport {
	case TransportWebSocket, TransportHTTP:
	default:
		return errors.Errorf("DAEMON_TRANSPORT must be %q or %q, got %q", TransportWebSocket, TransportHTTP, c.DaemonTransport)
	}
	switch c.DisplayContent {
	case DisplayStatus, DisplayHead, DisplayAntennas:
	default:
		return errors.Errorf("DISPLAY_CONTENT must be one of status, head, antennas, got %q", c.DisplayContent)
	}
	if c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		return errors.Errorf("RECONNECT_MAX_DELAY (%d) must not be below RECONNECT_BASE_DELAY (%d)",
			c.ReconnectMaxDelay, c.ReconnectBaseDelay)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls return that first result.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
