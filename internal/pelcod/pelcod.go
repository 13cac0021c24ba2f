package pelcod

import (
	"errors"
	"math"

	"github.com/sirupsen/logrus"

	"onvif-ptz/internal/ptz"
)

// ErrZoomSpeedUnsupported is reported when a zoom speed is requested but the
// encoder was not built with WithZoomSpeed. Many Pelco D receivers do not
// implement the extended zoom speed command.
var ErrZoomSpeedUnsupported = errors.New("pelcod: zoom speed not supported")

const (
	syncByte = 0xFF

	// Command 2 bits.
	panRight = 0x02
	panLeft  = 0x04
	tiltUp   = 0x08
	tiltDown = 0x10
	zoomTele = 0x20
	zoomWide = 0x40

	// Extended commands, carried in command 2 with bit 0 set.
	setPreset    = 0x03
	clearPreset  = 0x05
	gotoPreset   = 0x07
	setAux       = 0x09
	clearAux     = 0x0B
	zoomSpeedCmd = 0x25

	maxSpeed = 0x3F

	// HomePreset is the preset slot used to store and recall home.
	HomePreset = 1
)

// Encoder builds Pelco D frames for a single receiver address. It keeps the
// direction flags and speeds of the last Move, as the protocol has no
// separate stop command.
type Encoder struct {
	addr byte

	up, down, left, right bool
	zoomIn, zoomOut       bool
	panSpeed, tiltSpeed   byte

	zoomSpeed     int
	sentZoomSpeed int
	hasZoomSpeed  bool

	log               logrus.FieldLogger
	zoomSpeedReported bool
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithZoomSpeed enables the extended zoom speed command.
func WithZoomSpeed() Option {
	return func(e *Encoder) { e.hasZoomSpeed = true }
}

// WithLogger sets the logger for conditions that do not stop encoding.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Encoder) { e.log = log }
}

// New returns an encoder for the camera at addr.
func New(addr byte, opts ...Option) *Encoder {
	e := &Encoder{addr: addr, sentZoomSpeed: -1, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ptz.Encoder.
func (e *Encoder) Name() string { return "pelcod" }

// HomeSlot implements ptz.HomeSlotter.
func (e *Encoder) HomeSlot() int { return HomePreset }

// Encode implements ptz.Encoder.
func (e *Encoder) Encode(cmd ptz.Command) ([][]byte, error) {
	switch cmd.Kind {
	case ptz.GotoHome:
		return e.one(gotoPreset, HomePreset), nil
	case ptz.SetHome:
		return e.one(setPreset, HomePreset), nil
	case ptz.GotoPreset:
		return e.one(gotoPreset, cmd.Preset), nil
	case ptz.SetPreset:
		return e.one(setPreset, cmd.Preset), nil
	case ptz.ClearPreset:
		return e.one(clearPreset, cmd.Preset), nil
	case ptz.Aux:
		if cmd.Aux < 1 || cmd.Aux > 8 {
			return nil, ptz.ErrUnsupported
		}
		if cmd.On {
			return e.one(setAux, cmd.Aux), nil
		}
		return e.one(clearAux, cmd.Aux), nil
	case ptz.Move:
		return e.move(cmd.Motion), nil
	}
	return nil, ptz.ErrUnsupported
}

func (e *Encoder) one(cmd2 byte, data2 int) [][]byte {
	return [][]byte{e.frame(0x00, cmd2, 0x00, byte(data2))}
}

func (e *Encoder) move(v ptz.MotionVector) [][]byte {
	e.up, e.down, e.left, e.right = false, false, false, false
	switch {
	case v.Pan < 0 && v.Tilt > 0:
		e.up, e.left = true, true
	case v.Pan > 0 && v.Tilt > 0:
		e.up, e.right = true, true
	case v.Pan < 0 && v.Tilt < 0:
		e.down, e.left = true, true
	case v.Pan > 0 && v.Tilt < 0:
		e.down, e.right = true, true
	case v.Pan > 0:
		e.right = true
	case v.Pan < 0:
		e.left = true
	case v.Tilt > 0:
		e.up = true
	case v.Tilt < 0:
		e.down = true
	}
	e.panSpeed = Speed(v.Pan)
	e.tiltSpeed = Speed(v.Tilt)

	e.zoomIn = v.Zoom > 0
	e.zoomOut = v.Zoom < 0

	var frames [][]byte
	f, err := e.setZoomSpeed(ZoomSpeed(v.Zoom))
	switch {
	case errors.Is(err, ErrZoomSpeedUnsupported):
		// The receiver keeps its own zoom speed; the direction bits
		// still apply. Reported once, on the first zooming move.
		if v.Zoom != 0 && !e.zoomSpeedReported {
			e.zoomSpeedReported = true
			e.log.WithError(err).Debug("zoom at receiver default speed")
		}
	case f != nil:
		frames = append(frames, f)
	}
	return append(frames, e.frame(0x00, e.cmd2(), e.panSpeed, e.tiltSpeed))
}

// setZoomSpeed records the zoom speed and returns the frame that sets it,
// or nil when the receiver already has that speed.
func (e *Encoder) setZoomSpeed(s int) ([]byte, error) {
	e.zoomSpeed = s
	if !e.hasZoomSpeed {
		return nil, ErrZoomSpeedUnsupported
	}
	if s == e.sentZoomSpeed {
		return nil, nil
	}
	e.sentZoomSpeed = s
	return e.frame(0x00, zoomSpeedCmd, 0x00, byte(s)), nil
}

func (e *Encoder) cmd2() byte {
	var b byte
	if e.right {
		b |= panRight
	}
	if e.left {
		b |= panLeft
	}
	if e.up {
		b |= tiltUp
	}
	if e.down {
		b |= tiltDown
	}
	if e.zoomIn {
		b |= zoomTele
	}
	if e.zoomOut {
		b |= zoomWide
	}
	return b
}

// frame assembles a seven byte message with its checksum.
func (e *Encoder) frame(cmd1, cmd2, data1, data2 byte) []byte {
	f := []byte{syncByte, e.addr, cmd1, cmd2, data1, data2, 0}
	var sum byte
	for _, b := range f[1:6] {
		sum += b
	}
	f[6] = sum
	return f
}

// Speed maps a normalized axis velocity onto the Pelco D speed range
// 0..63, rounding half up.
func Speed(v float64) byte {
	s := math.Round(math.Abs(v) * maxSpeed)
	if s > maxSpeed {
		s = maxSpeed
	}
	return byte(s)
}

// ZoomSpeed quantizes a normalized zoom velocity into the four Pelco D
// zoom speeds.
func ZoomSpeed(z float64) int {
	a := math.Abs(z)
	switch {
	case a > 0.75:
		return 3
	case a > 0.5:
		return 2
	case a > 0.25:
		return 1
	}
	return 0
}

// Direction reports the direction flags set by the last Move.
func (e *Encoder) Direction() (up, down, left, right bool) {
	return e.up, e.down, e.left, e.right
}

// Speeds reports the pan, tilt and zoom speeds of the last Move.
func (e *Encoder) Speeds() (pan, tilt byte, zoom int) {
	return e.panSpeed, e.tiltSpeed, e.zoomSpeed
}
