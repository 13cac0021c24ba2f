package visca

import (
	"math"

	"onvif-ptz/internal/ptz"
)

const (
	// Camera address 1 on the serial daisy chain.
	addr = 1

	maxPanTiltSpeed = 0x18
	maxZoomSpeed    = 0x07

	// Pan-Tilt Drive direction bytes.
	dirLeft  = 0x01
	dirRight = 0x02
	dirUp    = 0x01
	dirDown  = 0x02
	dirStop  = 0x03
)

// Encoder builds VISCA command frames. It holds no state between calls.
type Encoder struct{}

// New returns a VISCA encoder.
func New() *Encoder { return &Encoder{} }

// Name implements ptz.Encoder.
func (e *Encoder) Name() string { return "visca" }

// Encode implements ptz.Encoder. Only home and continuous motion are
// supported; presets and aux outputs are not.
func (e *Encoder) Encode(cmd ptz.Command) ([][]byte, error) {
	switch cmd.Kind {
	case ptz.GotoHome:
		// Pan-tilt Home: 01 06 04
		return [][]byte{buildVISCAPayload([]byte{0x01, 0x06, 0x04})}, nil
	case ptz.Move:
		return [][]byte{panTilt(cmd.Motion), zoom(cmd.Motion.Zoom)}, nil
	}
	return nil, ptz.ErrUnsupported
}

// buildVISCAPayload constructs a raw VISCA command (address + payload + terminator)
func buildVISCAPayload(payload []byte) []byte {
	// VISCA command format: [address byte] [payload...] [terminator]
	// Address byte: 0x80 | address (1-7)
	cmd := make([]byte, 0, len(payload)+2)
	cmd = append(cmd, byte(0x80|addr))
	cmd = append(cmd, payload...)
	cmd = append(cmd, 0xFF) // Terminator
	return cmd
}

// panTilt builds the Pan-Tilt Drive command: 01 06 01 VV WW XX YY
// VV = pan speed (01-18), WW = tilt speed (01-18)
// XX: 01=left, 02=right, 03=stop
// YY: 01=up, 02=down, 03=stop
func panTilt(v ptz.MotionVector) []byte {
	panSpeed := axisSpeed(v.Pan)
	tiltSpeed := axisSpeed(v.Tilt)

	var panDir, tiltDir byte
	switch {
	case v.Pan < 0 && v.Tilt > 0:
		panDir, tiltDir = dirLeft, dirUp
	case v.Pan > 0 && v.Tilt > 0:
		panDir, tiltDir = dirRight, dirUp
	case v.Pan < 0 && v.Tilt < 0:
		panDir, tiltDir = dirLeft, dirDown
	case v.Pan > 0 && v.Tilt < 0:
		// Down-right has always been sent with the up-right bytes. Kept
		// until someone confirms what the installed heads expect.
		panDir, tiltDir = dirRight, dirUp
	case v.Pan > 0:
		panDir, tiltDir = dirRight, dirStop
	case v.Pan < 0:
		panDir, tiltDir = dirLeft, dirStop
	case v.Tilt > 0:
		panDir, tiltDir = dirStop, dirUp
	case v.Tilt < 0:
		panDir, tiltDir = dirStop, dirDown
	default:
		panDir, tiltDir = dirStop, dirStop
	}

	return buildVISCAPayload([]byte{0x01, 0x06, 0x01, panSpeed, tiltSpeed, panDir, tiltDir})
}

// zoom builds the Zoom command: 01 04 07 XY
// X: 0=stop, 2=tele(in), 3=wide(out)
// Y: speed 0-7
func zoom(z float64) []byte {
	speed := byte(min(int(math.Round(math.Abs(z)*maxZoomSpeed)), maxZoomSpeed))

	var cmd byte
	switch {
	case z < 0:
		cmd = 0x30 + speed
	case z > 0:
		cmd = 0x20 + speed
	default:
		cmd = 0x00
	}
	return buildVISCAPayload([]byte{0x01, 0x04, 0x07, cmd})
}

// axisSpeed maps a normalized velocity onto 0x01-0x18. A stopped axis
// reports speed 0.
func axisSpeed(v float64) byte {
	if v == 0 {
		return 0
	}
	return byte(max(1, min(int(math.Round(math.Abs(v)*maxPanTiltSpeed)), maxPanTiltSpeed)))
}
