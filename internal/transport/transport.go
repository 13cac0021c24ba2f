// Package transport owns the byte stream PTZ frames are written to.
package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNotOpen is returned by Write before the stream has opened, after an
// open failure, or after Close.
var ErrNotOpen = errors.New("transport: not open")

// writeTimeout bounds a single write on streams that support deadlines.
const writeTimeout = 10 * time.Millisecond

// Error is a failure to open or use the underlying stream.
type Error struct {
	Op   string // "open" or "write"
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Dialer opens a stream.
type Dialer func(ctx context.Context) (io.WriteCloser, error)

type deadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Binding holds the single PTZ output stream of the process. It is opened
// once, never reconnected, and closed on shutdown.
type Binding struct {
	name string
	dial Dialer
	log  logrus.FieldLogger

	mu     sync.Mutex
	conn   io.WriteCloser
	closed bool
}

// New returns an unopened binding. name is used in logs and errors.
func New(name string, dial Dialer, log logrus.FieldLogger) *Binding {
	return &Binding{name: name, dial: dial, log: log.WithField("transport", name)}
}

// Open starts opening the stream in the background. onOpen is called once
// the stream is usable; it is not called if opening fails. A failed
// binding stays closed for the life of the process.
func (b *Binding) Open(ctx context.Context, onOpen func(w io.Writer)) {
	go func() {
		conn, err := b.dial(ctx)
		if err != nil {
			b.log.WithError(&Error{Op: "open", Name: b.name, Err: err}).Error("ptz output disabled")
			return
		}

		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			conn.Close()
			return
		}
		b.conn = conn
		b.mu.Unlock()

		b.log.Info("transport open")
		if onOpen != nil {
			onOpen(b)
		}
	}()
}

// Write sends p without waiting for any reply. Errors are returned for
// logging only; the binding does not retry.
func (b *Binding) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return 0, ErrNotOpen
	}
	if d, ok := b.conn.(deadliner); ok {
		d.SetWriteDeadline(time.Now().Add(writeTimeout))
	}
	n, err := b.conn.Write(p)
	if err != nil {
		return n, &Error{Op: "write", Name: b.name, Err: err}
	}
	return n, nil
}

// Close closes the stream. Writes fail with ErrNotOpen afterwards.
func (b *Binding) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

// Name returns the binding's name.
func (b *Binding) Name() string { return b.name }
