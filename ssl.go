package wire

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/npsdb/nps-wire/codes"
	"github.com/npsdb/nps-wire/pkg/buffer"
	"github.com/npsdb/nps-wire/pkg/types"
)

// tlsSettleDelay is waited after a completed TLS handshake before the
// handshake resumes. Some server versions need a beat before they accept the
// first encrypted frame.
const tlsSettleDelay = 100 * time.Millisecond

// TLSClientConfig describes the certificate material used for a secured
// session. Peer verification is on unless InsecureSkipVerify is set.
type TLSClientConfig struct {
	// CAFile points at a PEM bundle of root certificates to verify the
	// server against. The system pool is used when empty.
	CAFile string
	// CertFile and KeyFile optionally hold the client certificate pair.
	CertFile string
	KeyFile  string
	// ServerName overrides the host name used during verification.
	ServerName         string
	InsecureSkipVerify bool
}

// Build assembles a tls.Config from the configured certificate material.
func (config TLSClientConfig) Build() (*tls.Config, error) {
	out := &tls.Config{
		ServerName:         config.ServerName,
		InsecureSkipVerify: config.InsecureSkipVerify,
	}

	if config.CAFile != "" {
		pem, err := os.ReadFile(config.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", config.CAFile)
		}

		out.RootCAs = pool
	}

	if config.CertFile != "" || config.KeyFile != "" {
		pair, err := tls.LoadX509KeyPair(config.CertFile, config.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}

		out.Certificates = []tls.Certificate{pair}
	}

	return out, nil
}

// secureSession negotiates the session security with the server and performs
// the in-band TLS upgrade when a secured session is agreed on. The requested
// security level is policy as much as a request: a server answer conflicting
// with a strict level terminates the attempt.
func (drv *Driver) secureSession(ctx context.Context, level types.SecurityLevel) error {
	err := drv.sendFrame(types.OpSSLNegotiate, func(writer *buffer.Writer) {
		writer.AddInt32(int32(level))
	})
	if err != nil {
		return err
	}

	resp, err := drv.reader.ReadByte()
	if err != nil {
		return err
	}

	switch types.ServerMessage(resp) {
	case types.ServerAccept:
		if level == types.OnlySecured {
			return failf(codes.TLSRequired, "server only offers unsecured sessions")
		}

		drv.logger.Debug("continuing with an unsecured session")
		return nil
	case types.ServerSecured:
		if level == types.OnlyUnsecured {
			return failf(codes.TLSRefused, "server insists on a secured session")
		}

		return drv.upgradeConn(ctx, level)
	case types.ServerError:
		return failf(codes.TLSRejected, "server rejected the security negotiation")
	default:
		return failf(codes.BadProtocol, "unexpected response %q to the security negotiation", resp)
	}
}

// upgradeConn confirms the secured session and upgrades the transport to TLS
// in-band. The receive buffer must be empty at the upgrade point; any
// buffered cleartext byte would otherwise end up inside the TLS engine.
func (drv *Driver) upgradeConn(ctx context.Context, level types.SecurityLevel) error {
	err := drv.sendFrame(types.OpSSLConnect, func(writer *buffer.Writer) {
		writer.AddInt32(int32(level))
	})
	if err != nil {
		return err
	}

	if n := drv.reader.Buffered(); n != 0 {
		return failf(codes.BadProtocol, "%d cleartext bytes buffered at the TLS upgrade point", n)
	}

	config := drv.tlsConfig
	if config == nil {
		config = &tls.Config{}
	}

	if config.ServerName == "" && !config.InsecureSkipVerify {
		config = config.Clone()
		config.ServerName = remoteHost(drv.conn)
	}

	conn := tls.Client(drv.conn, config)
	if err := conn.HandshakeContext(ctx); err != nil {
		return failf(codes.TLSHandshakeFailed, "TLS handshake: %v", err)
	}

	drv.clock.Sleep(tlsSettleDelay)

	drv.conn = conn
	drv.reader = drv.reader.Rewire(conn)
	drv.writer = buffer.NewWriter(drv.logger, conn)

	drv.logger.Debug("session upgraded to TLS")
	return nil
}

// remoteHost extracts the host part of the transport's remote address for
// certificate verification.
func remoteHost(conn net.Conn) string {
	addr := conn.RemoteAddr()
	if addr == nil {
		return ""
	}

	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}

	return host
}
