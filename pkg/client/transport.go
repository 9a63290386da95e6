package client

import (
	"context"
	"net"
	"net/http"
	"time"
)

// KeepAlive specifies the interval between TCP keep-alive probes of an open connection.
const KeepAlive = 10 * time.Second

// NewTransport creates a transport for exactly one connection.
// Keep-alive between requests is disabled, so the connection is closed when the response body is closed.
// The connectTimeout bounds dial and TLS handshake, the readTimeout bounds waiting for the response headers and each body read.
func NewTransport(connectTimeout, readTimeout time.Duration) *http.Transport {
	dialer := Dialer(connectTimeout)
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, readTimeout: readTimeout}, nil
		},
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		MaxConnsPerHost:       1,
	}
}

// Dialer creates a dialer with the connect timeout.
func Dialer(connectTimeout time.Duration) *net.Dialer {
	return &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: KeepAlive,
	}
}

// deadlineConn extends the read deadline before each read.
type deadlineConn struct {
	net.Conn
	readTimeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if c.readTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}
