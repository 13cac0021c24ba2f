package transport

import (
	"context"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Socket returns a Dialer connecting to host:port over network, which is
// "tcp" or "udp".
func Socket(network, host string, port int, timeout time.Duration) Dialer {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return func(ctx context.Context) (io.WriteCloser, error) {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, errors.Wrapf(err, "connect %s %s", network, addr)
		}
		return conn, nil
	}
}
