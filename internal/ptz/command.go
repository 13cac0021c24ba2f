package ptz

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MotionVector is a commanded velocity. Each axis is in [-1, 1]:
// positive pan is right, positive tilt is up, positive zoom is in.
type MotionVector struct {
	Pan  float64
	Tilt float64
	Zoom float64
}

// Kind selects the variant of a Command.
type Kind int

const (
	GotoHome Kind = iota
	SetHome
	GotoPreset
	SetPreset
	ClearPreset
	Aux
	RelayActive
	RelayInactive
	Move
)

var kindNames = [...]string{
	GotoHome:      "gotohome",
	SetHome:       "sethome",
	GotoPreset:    "gotopreset",
	SetPreset:     "setpreset",
	ClearPreset:   "clearpreset",
	Aux:           "aux",
	RelayActive:   "relayactive",
	RelayInactive: "relayinactive",
	Move:          "ptz",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Command is a single abstract PTZ request. Only the fields relevant to
// Kind are meaningful.
type Command struct {
	Kind   Kind
	Preset int    // GotoPreset, SetPreset, ClearPreset
	Aux    int    // Aux, 1..8
	On     bool   // Aux
	Relay  string // RelayActive, RelayInactive
	Motion MotionVector
}

// Data carries the loosely typed arguments that arrive with a command
// name from the control service. Nil axes are absent.
type Data struct {
	Name  string
	Value string
	Pan   *string
	Tilt  *string
	Zoom  *string
}

// Value returns a pointer to s, for building Data axes.
func Value(s string) *string { return &s }

// DecodeError reports a malformed field in an incoming command.
type DecodeError struct {
	Field string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ptz: bad %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var errNotFinite = fmt.Errorf("not a finite number")

// parseAxis parses a single normalized axis value.
func parseAxis(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &DecodeError{Field: field, Value: s, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &DecodeError{Field: field, Value: s, Err: errNotFinite}
	}
	return v, nil
}

// parseAux accepts "3", "aux3" or "AUX3".
func parseAux(s string) (int, error) {
	t := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "aux")
	n, err := strconv.Atoi(t)
	if err != nil {
		return 0, &DecodeError{Field: "aux", Value: s, Err: err}
	}
	if n < 1 || n > 8 {
		return 0, &DecodeError{Field: "aux", Value: s, Err: fmt.Errorf("out of range 1..8")}
	}
	return n, nil
}

// parseSwitch interprets an aux state value.
func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "active":
		return true, nil
	case "off", "false", "0", "inactive", "":
		return false, nil
	}
	return false, &DecodeError{Field: "state", Value: s, Err: fmt.Errorf("want on or off")}
}
