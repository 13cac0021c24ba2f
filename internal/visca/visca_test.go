package visca

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onvif-ptz/internal/ptz"
)

func encodeMove(t *testing.T, pan, tilt, zoom float64) [][]byte {
	t.Helper()
	frames, err := New().Encode(ptz.Command{
		Kind:   ptz.Move,
		Motion: ptz.MotionVector{Pan: pan, Tilt: tilt, Zoom: zoom},
	})
	require.NoError(t, err)
	require.Len(t, frames, 2)
	return frames
}

func TestGotoHome(t *testing.T) {
	frames, err := New().Encode(ptz.Command{Kind: ptz.GotoHome})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x81, 0x01, 0x06, 0x04, 0xFF}}, frames)
}

func TestStopFrames(t *testing.T) {
	want := [][]byte{
		{0x81, 0x01, 0x06, 0x01, 0x00, 0x00, 0x03, 0x03, 0xFF},
		{0x81, 0x01, 0x04, 0x07, 0x00, 0xFF},
	}
	assert.Equal(t, want, encodeMove(t, 0, 0, 0))
	assert.Equal(t, want, encodeMove(t, 0, 0, 0))
}

func TestPanTiltDirections(t *testing.T) {
	tests := []struct {
		name      string
		pan, tilt float64
		dirs      [2]byte
	}{
		{"right", 1, 0, [2]byte{0x02, 0x03}},
		{"left", -1, 0, [2]byte{0x01, 0x03}},
		{"up", 0, 1, [2]byte{0x03, 0x01}},
		{"down", 0, -1, [2]byte{0x03, 0x02}},
		{"up left", -1, 1, [2]byte{0x01, 0x01}},
		{"up right", 1, 1, [2]byte{0x02, 0x01}},
		{"down left", -1, -1, [2]byte{0x01, 0x02}},
		// Down-right goes out with the up-right bytes.
		{"down right", 1, -1, [2]byte{0x02, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := encodeMove(t, tt.pan, tt.tilt, 0)[0]
			require.Len(t, f, 9)
			assert.Equal(t, tt.dirs, [2]byte{f[6], f[7]})
		})
	}
}

func TestPanTiltSpeeds(t *testing.T) {
	f := encodeMove(t, 1, -0.5, 0)[0]
	assert.Equal(t, byte(0x18), f[4], "full pan speed")
	assert.Equal(t, byte(0x0C), f[5], "half tilt speed")

	// Any non-zero velocity moves at least at speed 1.
	f = encodeMove(t, 0.001, 0, 0)[0]
	assert.Equal(t, byte(0x01), f[4])
	assert.Equal(t, byte(0x00), f[5])
}

func TestSpeedsClampToProtocolMax(t *testing.T) {
	frames := encodeMove(t, -1.5, 2, -3)
	assert.Equal(t, byte(0x18), frames[0][4])
	assert.Equal(t, byte(0x18), frames[0][5])
	assert.Equal(t, byte(0x37), frames[1][4])
}

func TestZoomFrames(t *testing.T) {
	tests := []struct {
		zoom float64
		want byte
	}{
		{1, 0x27},
		{0.5, 0x24},
		{-1, 0x37},
		{-0.3, 0x32},
		{0, 0x00},
	}
	for _, tt := range tests {
		f := encodeMove(t, 0, 0, tt.zoom)[1]
		assert.Equal(t, []byte{0x81, 0x01, 0x04, 0x07, tt.want, 0xFF}, f, "zoom %v", tt.zoom)
	}
}

func TestUnsupported(t *testing.T) {
	for _, k := range []ptz.Kind{ptz.SetHome, ptz.GotoPreset, ptz.SetPreset, ptz.ClearPreset, ptz.Aux} {
		frames, err := New().Encode(ptz.Command{Kind: k, Preset: 3, Aux: 1})
		assert.ErrorIs(t, err, ptz.ErrUnsupported, k.String())
		assert.Nil(t, frames)
	}
}

func TestIPWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewIPWriter(&buf)

	frame := []byte{0x81, 0x01, 0x06, 0x04, 0xFF}
	n, err := w.Write(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)

	want := append([]byte{0x01, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x00}, frame...)
	assert.Equal(t, want, buf.Bytes())

	buf.Reset()
	_, err = w.Write(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01}, buf.Bytes()[4:8], "sequence number increments")
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("network unreachable") }

func TestIPWriterError(t *testing.T) {
	n, err := NewIPWriter(failWriter{}).Write([]byte{0x81, 0xFF})
	assert.Error(t, err)
	assert.Zero(t, n)
}
