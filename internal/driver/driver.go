// Package driver builds the PTZ encoder and output transport selected by
// the configuration. The choice is made once, at startup.
package driver

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"onvif-ptz/internal/config"
	"onvif-ptz/internal/pelcod"
	"onvif-ptz/internal/ptz"
	"onvif-ptz/internal/transport"
	"onvif-ptz/internal/turret"
	"onvif-ptz/internal/visca"
)

type turretDevice interface {
	turret.Device
	io.Closer
}

// openTurret is replaced in tests.
var openTurret = func(p turret.Pins) (turretDevice, error) {
	return turret.OpenGPIO(p)
}

// Setup is a configured encoder with its output.
type Setup struct {
	Encoder ptz.Encoder

	binding *transport.Binding
	wrap    func(io.Writer) io.Writer
	device  io.Closer
}

// None returns a setup with no PTZ output.
func None() *Setup {
	return &Setup{Encoder: ptz.None{}}
}

// Build validates c and constructs its encoder and transport. Nothing is
// opened except turret GPIO lines; call Start to open the transport.
func Build(c config.Config, log logrus.FieldLogger) (*Setup, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s := &Setup{}
	switch c.Driver {
	case config.DriverPelcoD:
		opts := []pelcod.Option{pelcod.WithLogger(log)}
		if c.ZoomSpeed {
			opts = append(opts, pelcod.WithZoomSpeed())
		}
		s.Encoder = pelcod.New(byte(c.CameraAddress), opts...)
	case config.DriverVISCA:
		s.Encoder = visca.New()
	case config.DriverTurret:
		dev, err := openTurret(turret.Pins{
			Up:        c.Turret.Up,
			Down:      c.Turret.Down,
			Left:      c.Turret.Left,
			Right:     c.Turret.Right,
			Fire:      c.Turret.Fire,
			FirePulse: c.Turret.FirePulse,
		})
		if err != nil {
			return nil, &transport.Error{Op: "open", Name: "gpio", Err: err}
		}
		s.device = dev
		s.Encoder = turret.New(dev)
	default:
		s.Encoder = ptz.None{}
	}

	switch c.Transport {
	case config.TransportSerial:
		s.binding = transport.New("serial", transport.Serial(transport.SerialConfig{
			Port:     c.Serial.Port,
			BaudRate: c.Serial.BaudRate,
			Parity:   c.Serial.Parity,
			DataBits: c.Serial.DataBits,
			StopBits: c.Serial.StopBits,
		}), log)
	case config.TransportTCP, config.TransportUDP:
		s.binding = transport.New(c.Transport, transport.Socket(c.Transport, c.TCP.Host, c.TCP.Port, c.TCP.Timeout), log)
		if c.Transport == config.TransportUDP {
			s.wrap = func(w io.Writer) io.Writer { return visca.NewIPWriter(w) }
		}
	}
	return s, nil
}

// Start opens the transport in the background and attaches r to it once
// open. Without a byte transport r is left detached.
func (s *Setup) Start(ctx context.Context, r *ptz.Router) {
	if s.binding == nil {
		return
	}
	s.binding.Open(ctx, func(w io.Writer) {
		if s.wrap != nil {
			w = s.wrap(w)
		}
		r.Attach(w)
	})
}

// TransportName reports the active transport, "none" if there is none.
func (s *Setup) TransportName() string {
	switch {
	case s.binding != nil:
		return s.binding.Name()
	case s.device != nil:
		return "gpio"
	}
	return config.TransportNone
}

// Close releases the transport and any turret hardware.
func (s *Setup) Close() error {
	var first error
	if s.binding != nil {
		first = s.binding.Close()
	}
	if s.device != nil {
		if err := s.device.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
