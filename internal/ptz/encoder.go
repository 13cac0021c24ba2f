package ptz

import "errors"

// ErrUnsupported is returned by an Encoder for operations that have no
// meaning for its protocol. The router drops such commands silently.
var ErrUnsupported = errors.New("ptz: operation not supported by driver")

// Encoder translates abstract PTZ commands into protocol frames.
type Encoder interface {
	// Name identifies the protocol variant, e.g. "pelcod".
	Name() string

	// Encode returns the frames to write for cmd, in order. Encoders that
	// drive hardware directly perform the action and return no frames.
	// For Move, cmd.Motion holds the full commanded vector.
	Encode(cmd Command) ([][]byte, error)
}

// HomeSlotter is implemented by encoders that implement home as a
// stored preset. The router never hands that slot out.
type HomeSlotter interface {
	HomeSlot() int
}

// None is the encoder used when no PTZ hardware is configured.
type None struct{}

// Name implements Encoder.
func (None) Name() string { return "none" }

// Encode implements Encoder; every command is a no-op.
func (None) Encode(Command) ([][]byte, error) { return nil, nil }
