package mqttbridge

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onvif-ptz/internal/ptz"
)

type recorder struct {
	names []string
	data  []ptz.Data
	token string
	err   error
}

func (r *recorder) Handle(ctx context.Context, name string, data ptz.Data) (string, error) {
	r.names = append(r.names, name)
	r.data = append(r.data, data)
	return r.token, r.err
}

func newBridge(h Handler) *Bridge {
	log, _ := test.NewNullLogger()
	return New(Config{Topic: "site/cam1"}, h, log)
}

func TestHandleMove(t *testing.T) {
	h := &recorder{}
	b := newBridge(h)

	_, ok := b.handle("site/cam1/ptz", []byte(`{"pan":-0.5,"tilt":"0.25"}`))
	require.True(t, ok)
	require.Equal(t, []string{"ptz"}, h.names)
	require.NotNil(t, h.data[0].Pan)
	assert.Equal(t, "-0.5", *h.data[0].Pan)
	assert.Equal(t, "0.25", *h.data[0].Tilt)
	assert.Nil(t, h.data[0].Zoom)
}

func TestHandleEmptyPayload(t *testing.T) {
	h := &recorder{}
	b := newBridge(h)

	_, ok := b.handle("site/cam1/gotohome", nil)
	require.True(t, ok)
	assert.Equal(t, []string{"gotohome"}, h.names)
}

func TestHandleSetPresetReturnsToken(t *testing.T) {
	h := &recorder{token: "5"}
	b := newBridge(h)

	token, ok := b.handle("site/cam1/setpreset", []byte(`{"name":"gate"}`))
	require.True(t, ok)
	assert.Equal(t, "5", token)
	assert.Equal(t, "gate", h.data[0].Name)
}

func TestHandleIgnoresPresetTopicAndBadJSON(t *testing.T) {
	h := &recorder{}
	b := newBridge(h)

	_, ok := b.handle("site/cam1/preset", []byte(`{"token":"5"}`))
	assert.False(t, ok)
	_, ok = b.handle("site/cam1/ptz", []byte(`{pan`))
	assert.False(t, ok)
	assert.Empty(t, h.names)
}

func TestHandleCancelled(t *testing.T) {
	h := &recorder{err: context.Canceled}
	b := newBridge(h)

	_, ok := b.handle("site/cam1/stop", nil)
	assert.False(t, ok)
}
