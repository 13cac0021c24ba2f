package ptz

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxPresets is the number of addressable preset slots, numbered 1..MaxPresets.
const MaxPresets = 255

// errNoFreeSlot is returned when every preset slot is taken.
var errNoFreeSlot = fmt.Errorf("ptz: all %d preset slots in use", MaxPresets)

// presetTable tracks which preset slots have been stored during this
// process lifetime. Slot numbers double as preset tokens.
type presetTable struct {
	used     [MaxPresets + 1]bool
	names    [MaxPresets + 1]string
	reserved int
}

func newPresetTable(reserved int) *presetTable {
	t := &presetTable{reserved: reserved}
	if reserved >= 1 && reserved <= MaxPresets {
		t.used[reserved] = true
		t.names[reserved] = "home"
	}
	return t
}

// alloc returns the first unused slot.
func (t *presetTable) alloc() (int, error) {
	for n := 1; n <= MaxPresets; n++ {
		if !t.used[n] {
			return n, nil
		}
	}
	return 0, errNoFreeSlot
}

func (t *presetTable) store(n int, name string) {
	t.used[n] = true
	t.names[n] = name
}

func (t *presetTable) clear(n int) {
	if n == t.reserved {
		return
	}
	t.used[n] = false
	t.names[n] = ""
}

// slot parses a preset token into a slot number. The reserved home slot
// is only accepted for recall.
func (t *presetTable) slot(token string, recall bool) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return 0, &DecodeError{Field: "preset", Value: token, Err: err}
	}
	if n < 1 || n > MaxPresets {
		return 0, &DecodeError{Field: "preset", Value: token, Err: fmt.Errorf("out of range 1..%d", MaxPresets)}
	}
	if n == t.reserved && !recall {
		return 0, &DecodeError{Field: "preset", Value: token, Err: fmt.Errorf("slot reserved for home")}
	}
	return n, nil
}

func token(n int) string { return strconv.Itoa(n) }
