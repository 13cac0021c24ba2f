// Package turret drives a discrete motion turret: a head that can only move
// in one of eight directions at a fixed speed, or stop, and has a single
// fire action.
package turret

import (
	"github.com/pkg/errors"

	"onvif-ptz/internal/ptz"
)

// Direction is one of the nine motion primitives.
type Direction int

const (
	Stop Direction = iota
	Up
	Down
	Left
	Right
	UpLeft
	UpRight
	DownLeft
	DownRight
)

var directionNames = [...]string{"stop", "up", "down", "left", "right", "up-left", "up-right", "down-left", "down-right"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return "unknown"
	}
	return directionNames[d]
}

// Device is the hardware behind a turret.
type Device interface {
	Move(d Direction) error
	Fire() error
}

// Encoder maps PTZ commands onto turret device calls. It produces no
// frames of its own.
type Encoder struct {
	dev Device
}

// New returns an encoder driving dev.
func New(dev Device) *Encoder { return &Encoder{dev: dev} }

// Name implements ptz.Encoder.
func (e *Encoder) Name() string { return "turret" }

// Encode implements ptz.Encoder. Any preset recall fires; zoom and speed
// are ignored.
func (e *Encoder) Encode(cmd ptz.Command) ([][]byte, error) {
	switch cmd.Kind {
	case ptz.Move:
		d := DirectionOf(cmd.Motion)
		if err := e.dev.Move(d); err != nil {
			return nil, errors.Wrapf(err, "turret move %s", d)
		}
		return nil, nil
	case ptz.GotoPreset:
		if err := e.dev.Fire(); err != nil {
			return nil, errors.Wrap(err, "turret fire")
		}
		return nil, nil
	}
	return nil, ptz.ErrUnsupported
}

// DirectionOf picks the primitive for a motion vector, testing diagonals
// before single axes and pan before tilt.
func DirectionOf(v ptz.MotionVector) Direction {
	switch {
	case v.Pan < 0 && v.Tilt > 0:
		return UpLeft
	case v.Pan > 0 && v.Tilt > 0:
		return UpRight
	case v.Pan < 0 && v.Tilt < 0:
		return DownLeft
	case v.Pan > 0 && v.Tilt < 0:
		return DownRight
	case v.Pan > 0:
		return Right
	case v.Pan < 0:
		return Left
	case v.Tilt > 0:
		return Up
	case v.Tilt < 0:
		return Down
	}
	return Stop
}
