package turret

import (
	"sync"
	"time"

	"github.com/kidoman/embd"
	"github.com/pkg/errors"
)

// Pins names the GPIO lines of a turret. Keys are anything embd accepts,
// e.g. a BCM number or "GPIO_17".
type Pins struct {
	Up, Down, Left, Right, Fire interface{}
	FirePulse                   time.Duration
}

const defaultFirePulse = 500 * time.Millisecond

// pin is the subset of embd.DigitalPin the turret uses.
type pin interface {
	Write(val int) error
	Close() error
}

// GPIO is a Device whose direction and fire inputs are wired to GPIO
// outputs. A diagonal drives two direction lines at once.
type GPIO struct {
	up, down, left, right, fire pin
	pulse                       time.Duration

	mu     sync.Mutex
	firing *time.Timer

	release func() error
}

// OpenGPIO initialises the GPIO driver and claims the turret's pins as
// outputs, all low.
func OpenGPIO(p Pins) (*GPIO, error) {
	if err := embd.InitGPIO(); err != nil {
		return nil, errors.Wrap(err, "init gpio")
	}
	keys := []interface{}{p.Up, p.Down, p.Left, p.Right, p.Fire}
	pins := make([]pin, 0, len(keys))
	for _, k := range keys {
		dp, err := embd.NewDigitalPin(k)
		if err == nil {
			err = dp.SetDirection(embd.Out)
		}
		if err != nil {
			for _, opened := range pins {
				opened.Close()
			}
			embd.CloseGPIO()
			return nil, errors.Wrapf(err, "open gpio pin %v", k)
		}
		pins = append(pins, dp)
	}
	g := newGPIO(pins[0], pins[1], pins[2], pins[3], pins[4], p.FirePulse)
	g.release = embd.CloseGPIO
	if err := g.Move(Stop); err != nil {
		g.Close()
		return nil, errors.Wrap(err, "reset turret lines")
	}
	return g, nil
}

func newGPIO(up, down, left, right, fire pin, pulse time.Duration) *GPIO {
	if pulse <= 0 {
		pulse = defaultFirePulse
	}
	return &GPIO{up: up, down: down, left: left, right: right, fire: fire, pulse: pulse}
}

// Move implements Device.
func (g *GPIO) Move(d Direction) error {
	var u, dn, l, r bool
	switch d {
	case Up:
		u = true
	case Down:
		dn = true
	case Left:
		l = true
	case Right:
		r = true
	case UpLeft:
		u, l = true, true
	case UpRight:
		u, r = true, true
	case DownLeft:
		dn, l = true, true
	case DownRight:
		dn, r = true, true
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	// Release lines before raising new ones so opposing inputs are never
	// high together.
	lines := []struct {
		p  pin
		on bool
	}{{g.up, u}, {g.down, dn}, {g.left, l}, {g.right, r}}
	for _, ln := range lines {
		if !ln.on {
			if err := ln.p.Write(embd.Low); err != nil {
				return err
			}
		}
	}
	for _, ln := range lines {
		if ln.on {
			if err := ln.p.Write(embd.High); err != nil {
				return err
			}
		}
	}
	return nil
}

// Fire implements Device. The fire line is held high for the pulse
// duration; a fire during a running pulse extends it.
func (g *GPIO) Fire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fire.Write(embd.High); err != nil {
		return err
	}
	if g.firing != nil {
		g.firing.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(g.pulse, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.firing != t {
			return
		}
		g.fire.Write(embd.Low)
		g.firing = nil
	})
	g.firing = t
	return nil
}

// Close drops every line and releases the GPIO driver.
func (g *GPIO) Close() error {
	g.mu.Lock()
	if g.firing != nil {
		g.firing.Stop()
		g.firing = nil
	}
	g.mu.Unlock()

	var first error
	for _, p := range []pin{g.up, g.down, g.left, g.right, g.fire} {
		if err := p.Write(embd.Low); err != nil && first == nil {
			first = err
		}
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	if g.release != nil {
		if err := g.release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
