package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"

	"onvif-ptz/internal/ptz"
)

// Message types
const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypeStatus      = "status"
	TypePTZCommand  = "ptz_command"
	TypePTZStop     = "ptz_stop"
	TypePTZPreset   = "ptz_preset"
	TypePresetSaved = "preset_saved"
	TypeError       = "error"
)

// Error codes
const (
	ErrInvalidMessage = "INVALID_MESSAGE"
	ErrUnavailable    = "PTZ_UNAVAILABLE"
)

// Message is the base envelope for all WebSocket messages
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PingPayload for ping messages
type PingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// PongPayload for pong messages
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"`
	ServerTimestamp int64 `json:"server_timestamp"`
}

// StatusPayload for status messages
type StatusPayload struct {
	Driver    string `json:"driver"`
	Transport string `json:"transport"`
}

// PTZCommandPayload carries one named command. Axes may be numbers or
// strings and may be omitted; an omitted axis keeps its current velocity.
type PTZCommandPayload struct {
	Command string          `json:"command"`
	Name    string          `json:"name,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Pan     json.RawMessage `json:"pan,omitempty"`
	Tilt    json.RawMessage `json:"tilt,omitempty"`
	Zoom    json.RawMessage `json:"zoom,omitempty"`
}

// Data converts the payload into router arguments.
func (p PTZCommandPayload) Data() ptz.Data {
	var value string
	if v := rawString(p.Value); v != nil {
		value = *v
	}
	return ptz.Data{
		Name:  p.Name,
		Value: value,
		Pan:   rawString(p.Pan),
		Tilt:  rawString(p.Tilt),
		Zoom:  rawString(p.Zoom),
	}
}

// rawString returns the text of a JSON scalar: strings are unquoted,
// anything else is passed through for the router to parse. Absent and
// null values yield nil.
func rawString(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return &s
	}
	s = string(raw)
	return &s
}

// PTZPresetPayload for preset recall/save/clear
type PTZPresetPayload struct {
	Action       string `json:"action"`
	PresetNumber int    `json:"preset_number,omitempty"`
	Name         string `json:"name,omitempty"`
}

// Command maps the preset action onto a router command and its data. A
// zero preset number on save asks for the next free slot.
func (p PTZPresetPayload) Command() (string, ptz.Data, bool) {
	var token string
	if p.PresetNumber != 0 {
		token = strconv.Itoa(p.PresetNumber)
	}
	d := ptz.Data{Name: p.Name, Value: token}
	switch p.Action {
	case "recall":
		return "gotopreset", d, true
	case "save":
		return "setpreset", d, true
	case "clear":
		return "clearpreset", d, true
	case "home":
		return "gotohome", d, true
	case "set_home":
		return "sethome", d, true
	}
	return "", d, false
}

// PresetSavedPayload reports the token assigned to a stored preset
type PresetSavedPayload struct {
	Token string `json:"token"`
}

// ErrorPayload for error messages
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessage creates a new message with the given type and payload
func NewMessage(msgType string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:    msgType,
		Payload: data,
	}, nil
}

// ParsePayload unmarshals the payload into the given struct
func (m *Message) ParsePayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}
