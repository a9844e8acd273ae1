// Package transport implements spec §4.1: one TCP (or TLS) byte stream per
// Session, with reconnect-and-retransmit on failure.
//
// Grounded on backend/ftp/ftp.go's dial options (address family
// preference, keepalive) and on crypto/tls used directly as the
// out-of-scope TLS primitive (spec §1 lists "TLS transport primitives" as
// an external collaborator - we don't reimplement a handshake, just layer
// the stdlib client over the dialed socket).
package transport

import (
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/svnup/svnup/internal/svnlog"
	"github.com/svnup/svnup/svn"
)

const (
	sendRecvBufferSize = 32 * 1024
	keepAlive          = 30 * time.Second
	dialTimeout        = 30 * time.Second
)

// Transport is a reconnectable byte stream to one (address, port), honoring
// an address family preference and optionally wrapping the connection in
// TLS.
type Transport struct {
	address string
	port    int
	family  svn.Family
	tlsMode bool

	conn net.Conn
}

// New constructs a Transport for the given config. It does not dial yet;
// call Connect.
func New(cfg *svn.Config) *Transport {
	return &Transport{
		address: cfg.Address,
		port:    cfg.Port,
		family:  cfg.Family,
		tlsMode: cfg.Protocol == svn.ProtocolHTTPS,
	}
}

// Connect dials the remote host, replacing any existing connection.
func (t *Transport) Connect() error {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}
	addr := net.JoinHostPort(t.address, strconv.Itoa(t.port))
	conn, err := dialer.Dial(t.family.Network(), addr)
	if err != nil {
		return errors.Wrapf(err, "connect to %s", addr)
	}
	if t.tlsMode {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: t.address, MinVersion: tls.VersionTLS10})
		if err := tlsConn.Handshake(); err != nil {
			_ = conn.Close()
			return errors.Wrap(err, "TLS handshake")
		}
		conn = tlsConn
	}
	if tc, ok := underlyingTCPConn(conn); ok {
		_ = tc.SetReadBuffer(sendRecvBufferSize)
		_ = tc.SetWriteBuffer(sendRecvBufferSize)
	}
	t.conn = conn
	return nil
}

// underlyingTCPConn unwraps a *tls.Conn to the *net.TCPConn beneath it, if
// any, so send/recv buffer sizes can be tuned.
func underlyingTCPConn(conn net.Conn) (*net.TCPConn, bool) {
	type netConner interface {
		NetConn() net.Conn
	}
	if nc, ok := conn.(netConner); ok {
		conn = nc.NetConn()
	}
	tc, ok := conn.(*net.TCPConn)
	return tc, ok
}

// Send writes b in full to the connection.
func (t *Transport) Send(b []byte) error {
	if t.conn == nil {
		return errors.New("transport: not connected")
	}
	_, err := t.conn.Write(b)
	return err
}

// Recv reads up to len(buf) bytes. A zero-length read with a nil error
// never happens on a TCP stream; callers treat n==0 with err==nil as EOF.
func (t *Transport) Recv(buf []byte) (int, error) {
	if t.conn == nil {
		return 0, errors.New("transport: not connected")
	}
	return t.conn.Read(buf)
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// Reset closes and reopens the connection. Callers are responsible for
// reissuing the pending command afterwards (spec §4.1/§7: up to
// retry.MaxRetries attempts before the caller gives up).
func (t *Transport) Reset() error {
	svnlog.Debugf(nil, "resetting connection to %s:%d", t.address, t.port)
	return t.Connect()
}
