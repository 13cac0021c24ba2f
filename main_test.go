package main

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onvif-ptz/internal/ptz"
)

func TestStopHeadSendsStop(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := ptz.NewRouter(ptz.None{}, log)
	r.Handle("ptz", ptz.Data{Pan: ptz.Value("1")})
	d := ptz.NewDispatcher(r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	stopHead(d, log, time.Second)
	cancel()
	<-done

	assert.Equal(t, ptz.MotionVector{}, r.State())
	assert.Empty(t, hook.AllEntries())
}

func TestStopHeadLogsWhenNotHandled(t *testing.T) {
	log, hook := test.NewNullLogger()
	// No Run loop, so the stop is never accepted.
	d := ptz.NewDispatcher(ptz.NewRouter(ptz.None{}, log))

	stopHead(d, log, 10*time.Millisecond)

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.ErrorIs(t, hook.LastEntry().Data[logrus.ErrorKey].(error), context.DeadlineExceeded)
}
