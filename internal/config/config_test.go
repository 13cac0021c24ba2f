package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
driver: pelcod
transport: serial
cameraAddress: 3
serial:
  port: /dev/ttyUSB0
  baudRate: 2400
relays:
  lamp: 2
mqtt:
  broker: tcp://localhost:1883
log:
  level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ptz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.NoError(t, c.Validate())
}

func TestLoadFile(t *testing.T) {
	c, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, DriverPelcoD, c.Driver)
	assert.Equal(t, TransportSerial, c.Transport)
	assert.Equal(t, 3, c.CameraAddress)
	assert.Equal(t, "/dev/ttyUSB0", c.Serial.Port)
	assert.Equal(t, 2400, c.Serial.BaudRate)
	// Unset keys keep their defaults.
	assert.Equal(t, "none", c.Serial.Parity)
	assert.Equal(t, 8, c.Serial.DataBits)
	assert.Equal(t, "onvif/ptz", c.MQTT.Topic)
	assert.Equal(t, map[string]int{"lamp": 2}, c.Relays)
	assert.Equal(t, "debug", c.Log.Level)
	assert.NoError(t, c.Validate())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PTZ_DRIVER", "visca")
	t.Setenv("PTZ_TRANSPORT", "udp")
	t.Setenv("PTZ_TCP_HOST", "10.0.0.9")
	t.Setenv("PTZ_TCP_PORT", "52381")
	t.Setenv("PTZ_TCP_TIMEOUT", "2s")
	t.Setenv("PTZ_MQTT_CLIENT_ID", "cam-7")

	c, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, DriverVISCA, c.Driver)
	assert.Equal(t, TransportUDP, c.Transport)
	assert.Equal(t, "10.0.0.9", c.TCP.Host)
	assert.Equal(t, 52381, c.TCP.Port)
	assert.Equal(t, 2*time.Second, c.TCP.Timeout)
	assert.Equal(t, "cam-7", c.MQTT.ClientID)
	assert.NoError(t, c.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "driver: [pelcod"))
	require.Error(t, err)
	var ce *Error
	assert.False(t, errors.As(err, &ce), "a syntax error leaves no usable config")
}

func TestLoadBadValueKeepsSurfaces(t *testing.T) {
	path := writeConfig(t, `
driver: visca
transport: tcp
listen: ":9000"
tcp:
  host: cam
  port: abc
mqtt:
  broker: tcp://broker:1883
`)
	c, err := Load(path)

	var ce *Error
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, path, ce.Field)
	assert.Contains(t, ce.Reason, "abc")

	assert.Equal(t, DriverNone, c.Driver)
	assert.Equal(t, TransportNone, c.Transport)
	assert.Equal(t, ":9000", c.Listen)
	assert.Equal(t, "tcp://broker:1883", c.MQTT.Broker)
	assert.Equal(t, "cam", c.TCP.Host)
	assert.NoError(t, c.Validate())
}

func TestLoadBadEnvKeepsSurfaces(t *testing.T) {
	t.Setenv("PTZ_DRIVER", "pelcod")
	t.Setenv("PTZ_TRANSPORT", "tcp")
	t.Setenv("PTZ_TCP_HOST", "cam")
	t.Setenv("PTZ_TCP_PORT", "abc")
	t.Setenv("PTZ_LISTEN", ":9100")
	t.Setenv("PTZ_MQTT_TOPIC", "site/ptz")

	c, err := Load("")

	var ce *Error
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "PTZ_TCP_PORT", ce.Field)

	assert.Equal(t, DriverNone, c.Driver)
	assert.Equal(t, TransportNone, c.Transport)
	assert.Equal(t, ":9100", c.Listen)
	assert.Equal(t, "site/ptz", c.MQTT.Topic)
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(c *Config)
		field string
	}{
		{"unknown driver", func(c *Config) { c.Driver = "onvif" }, "driver"},
		{"address", func(c *Config) { c.CameraAddress = 256 }, "cameraAddress"},
		{"unknown transport", func(c *Config) { c.Transport = "usb" }, "transport"},
		{"serial port", func(c *Config) { c.Transport = TransportSerial }, "serial.port"},
		{"serial parity", func(c *Config) {
			c.Transport = TransportSerial
			c.Serial.Port = "/dev/ttyS0"
			c.Serial.Parity = "odd-ish"
		}, "serial.parity"},
		{"serial stop bits", func(c *Config) {
			c.Transport = TransportSerial
			c.Serial.Port = "/dev/ttyS0"
			c.Serial.StopBits = 3
		}, "serial.stopBits"},
		{"tcp host", func(c *Config) { c.Transport = TransportTCP }, "tcp.host"},
		{"tcp port", func(c *Config) {
			c.Transport = TransportTCP
			c.TCP.Host = "cam"
		}, "tcp.port"},
		{"udp needs visca", func(c *Config) {
			c.Driver = DriverPelcoD
			c.Transport = TransportUDP
			c.TCP = Socket{Host: "cam", Port: 52381}
		}, "transport"},
		{"turret pins", func(c *Config) {
			c.Driver = DriverTurret
			c.Turret = Turret{Up: 17, Down: 27, Left: 22, Right: 23}
		}, "turret"},
		{"turret duplicate pin", func(c *Config) {
			c.Driver = DriverTurret
			c.Turret = Turret{Up: 17, Down: 17, Left: 22, Right: 23, Fire: 24}
		}, "turret"},
		{"relay aux", func(c *Config) { c.Relays = map[string]int{"lamp": 9} }, "relays.lamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.edit(&c)
			err := c.Validate()
			var ce *Error
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestValidateTurret(t *testing.T) {
	c := Default()
	c.Driver = DriverTurret
	c.Turret = Turret{Up: 17, Down: 27, Left: 22, Right: 23, Fire: 24}
	assert.NoError(t, c.Validate())
}
