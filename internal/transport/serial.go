package transport

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// SerialConfig describes a serial line.
type SerialConfig struct {
	Port     string
	BaudRate int
	Parity   string  // none, odd, even, mark, space
	DataBits int     // 5..8
	StopBits float64 // 1, 1.5, 2
}

var parities = map[string]serial.Parity{
	"":      serial.NoParity,
	"none":  serial.NoParity,
	"odd":   serial.OddParity,
	"even":  serial.EvenParity,
	"mark":  serial.MarkParity,
	"space": serial.SpaceParity,
}

var stopBits = map[float64]serial.StopBits{
	0:   serial.OneStopBit,
	1:   serial.OneStopBit,
	1.5: serial.OnePointFiveStopBits,
	2:   serial.TwoStopBits,
}

// Mode converts c into a serial.Mode.
func (c SerialConfig) Mode() (*serial.Mode, error) {
	p, ok := parities[c.Parity]
	if !ok {
		return nil, errors.Errorf("unknown parity %q", c.Parity)
	}
	s, ok := stopBits[c.StopBits]
	if !ok {
		return nil, errors.Errorf("unsupported stop bits %v", c.StopBits)
	}
	bits := c.DataBits
	if bits == 0 {
		bits = 8
	}
	if bits < 5 || bits > 8 {
		return nil, errors.Errorf("unsupported data bits %d", c.DataBits)
	}
	if c.BaudRate <= 0 {
		return nil, errors.Errorf("invalid baud rate %d", c.BaudRate)
	}
	return &serial.Mode{BaudRate: c.BaudRate, Parity: p, DataBits: bits, StopBits: s}, nil
}

// Serial returns a Dialer opening the configured serial port.
func Serial(c SerialConfig) Dialer {
	return func(ctx context.Context) (io.WriteCloser, error) {
		mode, err := c.Mode()
		if err != nil {
			return nil, err
		}
		port, err := serial.Open(c.Port, mode)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", c.Port)
		}
		return port, nil
	}
}
