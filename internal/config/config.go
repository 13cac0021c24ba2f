// Package config loads the bridge configuration from a YAML file with
// PTZ_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Driver variants.
const (
	DriverPelcoD = "pelcod"
	DriverVISCA  = "visca"
	DriverTurret = "turret"
	DriverNone   = "none"
)

// Transport kinds.
const (
	TransportSerial = "serial"
	TransportTCP    = "tcp"
	TransportUDP    = "udp"
	TransportNone   = "none"
)

// envPrefix is the prefix of environment overrides, e.g. PTZ_DRIVER.
const envPrefix = "ptz"

// Config is the full bridge configuration.
type Config struct {
	Driver        string         `yaml:"driver"`
	Transport     string         `yaml:"transport"`
	CameraAddress int            `yaml:"cameraAddress" split_words:"true"`
	ZoomSpeed     bool           `yaml:"zoomSpeed" split_words:"true"`
	Serial        Serial         `yaml:"serial"`
	TCP           Socket         `yaml:"tcp"`
	Turret        Turret         `yaml:"turret"`
	Relays        map[string]int `yaml:"relays"`
	Listen        string         `yaml:"listen"`
	MQTT          MQTT           `yaml:"mqtt"`
	Log           Log            `yaml:"log"`
}

// Serial configures the serial transport.
type Serial struct {
	Port     string  `yaml:"port"`
	BaudRate int     `yaml:"baudRate" split_words:"true"`
	Parity   string  `yaml:"parity"`
	DataBits int     `yaml:"dataBits" split_words:"true"`
	StopBits float64 `yaml:"stopBits" split_words:"true"`
}

// Socket configures the tcp and udp transports.
type Socket struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

// Turret configures the GPIO turret. Pins are BCM numbers.
type Turret struct {
	Up        int           `yaml:"up"`
	Down      int           `yaml:"down"`
	Left      int           `yaml:"left"`
	Right     int           `yaml:"right"`
	Fire      int           `yaml:"fire"`
	FirePulse time.Duration `yaml:"firePulse" split_words:"true"`
}

// MQTT configures the MQTT command ingress. An empty Broker disables it.
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientID" envconfig:"CLIENT_ID"`
	Topic    string `yaml:"topic"`
}

// Log configures logging. An empty File logs to stderr only.
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"maxSize" split_words:"true"` // megabytes
	MaxBackups int    `yaml:"maxBackups" split_words:"true"`
	MaxAge     int    `yaml:"maxAge" split_words:"true"` // days
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Driver:        DriverNone,
		Transport:     TransportNone,
		CameraAddress: 1,
		Serial: Serial{
			BaudRate: 9600,
			Parity:   "none",
			DataBits: 8,
			StopBits: 1,
		},
		TCP:    Socket{Timeout: 5 * time.Second},
		Turret: Turret{FirePulse: 500 * time.Millisecond},
		Listen: ":8080",
		MQTT:   MQTT{ClientID: "onvif-ptz", Topic: "onvif/ptz"},
		Log: Log{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
//
// A value of the wrong type is a *Error: the returned config is still
// usable, with PTZ output switched off. Any other error means no usable
// config was read.
func Load(path string) (Config, error) {
	c := Default()
	var bad *Error
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, errors.Wrap(err, "read config")
		}
		var te *yaml.TypeError
		switch err := yaml.Unmarshal(b, &c); {
		case errors.As(err, &te):
			bad = &Error{Field: path, Reason: strings.Join(te.Errors, "; ")}
		case err != nil:
			return c, errors.Wrapf(err, "parse config %s", path)
		}
	}
	var pe *envconfig.ParseError
	switch err := envconfig.Process(envPrefix, &c); {
	case errors.As(err, &pe):
		if bad == nil {
			bad = &Error{Field: pe.KeyName, Reason: fmt.Sprintf("bad value %q: %v", pe.Value, pe.Err)}
		}
		// Processing stops at the bad key; pick up the overrides of the
		// settings that do not depend on PTZ output.
		c.processSurfaces()
	case err != nil:
		return c, errors.Wrap(err, "environment config")
	}
	if bad != nil {
		c.Driver = DriverNone
		c.Transport = TransportNone
		return c, bad
	}
	return c, nil
}

// surfaces holds the settings that stay in force when PTZ output is off.
type surfaces struct {
	Listen string
	MQTT   MQTT
	Log    Log
}

func (c *Config) processSurfaces() {
	s := surfaces{Listen: c.Listen, MQTT: c.MQTT, Log: c.Log}
	// Keys after another bad value keep their current settings.
	envconfig.Process(envPrefix, &s)
	c.Listen, c.MQTT, c.Log = s.Listen, s.MQTT, s.Log
}

// Error is an invalid configuration value. It disables PTZ output but not
// the rest of the process.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

var (
	parities = map[string]bool{"none": true, "odd": true, "even": true, "mark": true, "space": true}
	stopBits = map[float64]bool{1: true, 1.5: true, 2: true}
)

// Validate checks the PTZ part of the configuration.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPelcoD, DriverVISCA, DriverTurret, DriverNone:
	default:
		return invalid("driver", "unknown driver %q", c.Driver)
	}
	if c.CameraAddress < 0 || c.CameraAddress > 255 {
		return invalid("cameraAddress", "%d out of range 0..255", c.CameraAddress)
	}

	switch c.Transport {
	case TransportNone:
	case TransportSerial:
		s := c.Serial
		if s.Port == "" {
			return invalid("serial.port", "required")
		}
		if s.BaudRate <= 0 {
			return invalid("serial.baudRate", "must be positive, got %d", s.BaudRate)
		}
		if !parities[s.Parity] {
			return invalid("serial.parity", "unknown parity %q", s.Parity)
		}
		if s.DataBits < 5 || s.DataBits > 8 {
			return invalid("serial.dataBits", "%d out of range 5..8", s.DataBits)
		}
		if !stopBits[s.StopBits] {
			return invalid("serial.stopBits", "must be 1, 1.5 or 2, got %v", s.StopBits)
		}
	case TransportTCP, TransportUDP:
		if c.TCP.Host == "" {
			return invalid("tcp.host", "required")
		}
		if c.TCP.Port < 1 || c.TCP.Port > 65535 {
			return invalid("tcp.port", "%d out of range 1..65535", c.TCP.Port)
		}
		if c.Transport == TransportUDP && c.Driver != DriverVISCA {
			return invalid("transport", "udp is only supported with the visca driver")
		}
	default:
		return invalid("transport", "unknown transport %q", c.Transport)
	}

	if c.Driver == DriverTurret {
		t := c.Turret
		pins := map[int]bool{}
		for _, p := range []int{t.Up, t.Down, t.Left, t.Right, t.Fire} {
			if p <= 0 {
				return invalid("turret", "all five pins are required")
			}
			if pins[p] {
				return invalid("turret", "pin %d used twice", p)
			}
			pins[p] = true
		}
	}

	for name, n := range c.Relays {
		if n < 1 || n > 8 {
			return invalid("relays."+name, "aux %d out of range 1..8", n)
		}
	}
	return nil
}
