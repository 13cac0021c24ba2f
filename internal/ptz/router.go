package ptz

import (
	"errors"
	"io"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Router turns incoming commands into encoder output and writes it to the
// attached transport. It keeps the last commanded motion vector, so a Move
// that omits an axis leaves that axis moving as before.
//
// A Router is not safe for concurrent use; callers on several goroutines
// should go through a Dispatcher.
type Router struct {
	enc     Encoder
	log     logrus.FieldLogger
	state   MotionVector
	presets *presetTable
	relays  map[string]int
	out     atomic.Pointer[sink]
}

type sink struct{ w io.Writer }

// Option configures a Router.
type Option func(*Router)

// WithRelays maps relay names to aux channels for relayactive and
// relayinactive. Names are matched case-insensitively.
func WithRelays(m map[string]int) Option {
	return func(r *Router) {
		for name, n := range m {
			r.relays[strings.ToLower(name)] = n
		}
	}
}

// NewRouter returns a router driving enc. Output is dropped until a
// writer is attached.
func NewRouter(enc Encoder, log logrus.FieldLogger, opts ...Option) *Router {
	if enc == nil {
		enc = None{}
	}
	reserved := 0
	if h, ok := enc.(HomeSlotter); ok {
		reserved = h.HomeSlot()
	}
	r := &Router{
		enc:     enc,
		log:     log.WithField("driver", enc.Name()),
		presets: newPresetTable(reserved),
		relays:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach sets the writer frames are sent to. It is safe to call from the
// transport's open callback while commands are being handled.
func (r *Router) Attach(w io.Writer) {
	if w == nil {
		r.out.Store(nil)
		return
	}
	r.out.Store(&sink{w: w})
}

// State returns the current commanded motion vector.
func (r *Router) State() MotionVector { return r.state }

// Handle decodes a named command and dispatches it. For setpreset it
// returns the token of the stored preset; otherwise it returns "".
// Handle never fails: malformed input is logged and skipped.
func (r *Router) Handle(name string, data Data) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gotohome":
		return r.Dispatch(Command{Kind: GotoHome})
	case "sethome":
		return r.Dispatch(Command{Kind: SetHome})
	case "gotopreset":
		n, err := r.presets.slot(data.Value, true)
		if err != nil {
			r.log.WithError(err).Warn("ignoring gotopreset")
			return ""
		}
		return r.Dispatch(Command{Kind: GotoPreset, Preset: n})
	case "setpreset":
		return r.setPreset(data)
	case "clearpreset":
		n, err := r.presets.slot(data.Value, false)
		if err != nil {
			r.log.WithError(err).Warn("ignoring clearpreset")
			return ""
		}
		return r.Dispatch(Command{Kind: ClearPreset, Preset: n})
	case "aux":
		n, err := parseAux(data.Name)
		if err != nil {
			r.log.WithError(err).Warn("ignoring aux")
			return ""
		}
		on, err := parseSwitch(data.Value)
		if err != nil {
			r.log.WithError(err).Warn("ignoring aux")
			return ""
		}
		return r.Dispatch(Command{Kind: Aux, Aux: n, On: on})
	case "relayactive":
		return r.Dispatch(Command{Kind: RelayActive, Relay: data.Name})
	case "relayinactive":
		return r.Dispatch(Command{Kind: RelayInactive, Relay: data.Name})
	case "ptz", "move":
		return r.Dispatch(Command{Kind: Move, Motion: r.merge(data)})
	case "stop":
		return r.Dispatch(Command{Kind: Move})
	default:
		r.log.WithField("command", name).Warn("unknown ptz command")
		return ""
	}
}

// merge applies the axes present in data to the current state. A
// malformed axis stops that axis without affecting the others.
func (r *Router) merge(data Data) MotionVector {
	v := r.state
	axes := []struct {
		name string
		raw  *string
		dst  *float64
	}{
		{"pan", data.Pan, &v.Pan},
		{"tilt", data.Tilt, &v.Tilt},
		{"zoom", data.Zoom, &v.Zoom},
	}
	for _, a := range axes {
		if a.raw == nil {
			continue
		}
		f, err := parseAxis(a.name, *a.raw)
		if err != nil {
			r.log.WithError(err).Warn("axis falls back to 0")
		}
		*a.dst = f
	}
	return v
}

func (r *Router) setPreset(data Data) string {
	var (
		n   int
		err error
	)
	if strings.TrimSpace(data.Value) == "" {
		n, err = r.presets.alloc()
	} else {
		n, err = r.presets.slot(data.Value, false)
	}
	if err != nil {
		r.log.WithError(err).Warn("ignoring setpreset")
		return ""
	}
	r.presets.store(n, data.Name)
	return r.Dispatch(Command{Kind: SetPreset, Preset: n})
}

// Dispatch encodes cmd and writes the result. Move commands replace the
// stored motion state. For SetPreset the slot token is returned even when
// the driver has no preset support, since the caller owns preset identity.
func (r *Router) Dispatch(cmd Command) string {
	var result string
	switch cmd.Kind {
	case Move:
		r.state = cmd.Motion
	case GotoPreset, SetPreset, ClearPreset:
		if cmd.Preset < 1 || cmd.Preset > MaxPresets {
			r.log.WithField("preset", cmd.Preset).Warn("preset slot out of range")
			return ""
		}
		if cmd.Kind == SetPreset {
			r.presets.used[cmd.Preset] = true
			result = token(cmd.Preset)
		}
		if cmd.Kind == ClearPreset {
			r.presets.clear(cmd.Preset)
		}
	case RelayActive, RelayInactive:
		n, ok := r.relay(cmd.Relay)
		if !ok {
			r.log.WithField("relay", cmd.Relay).Warn("unknown relay")
			return ""
		}
		cmd = Command{Kind: Aux, Aux: n, On: cmd.Kind == RelayActive}
	}

	frames, err := r.enc.Encode(cmd)
	switch {
	case errors.Is(err, ErrUnsupported):
		r.log.WithField("command", cmd.Kind).Debug("not supported by driver")
	case err != nil:
		r.log.WithError(err).WithField("command", cmd.Kind).Error("encode failed")
	default:
		r.write(frames)
	}
	return result
}

func (r *Router) relay(name string) (int, bool) {
	if n, ok := r.relays[strings.ToLower(name)]; ok {
		return n, true
	}
	n, err := parseAux(name)
	return n, err == nil
}

// write sends frames to the attached writer. Failures are logged and do
// not stop later frames or later commands.
func (r *Router) write(frames [][]byte) {
	if len(frames) == 0 {
		return
	}
	s := r.out.Load()
	if s == nil {
		r.log.WithField("frames", len(frames)).Debug("transport not open, dropping output")
		return
	}
	for _, f := range frames {
		if _, err := s.w.Write(f); err != nil {
			r.log.WithError(err).Error("transport write failed")
		}
	}
}
