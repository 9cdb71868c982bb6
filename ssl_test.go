package wire

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/npsdb/nps-wire/codes"
	npserr "github.com/npsdb/nps-wire/errors"
	"github.com/npsdb/nps-wire/pkg/mock"
	"github.com/npsdb/nps-wire/pkg/types"
)

func selfSignedCert(t *testing.T) (tls.Certificate, []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "nps-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, der
}

func TestStartupInBandTLSUpgrade(t *testing.T) {
	cert, _ := selfSignedCert(t)

	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.ExpectFrame(types.OpClientBegin)
		backend.Accept()

		negotiate := backend.ExpectFrame(types.OpSSLNegotiate)
		require.Equal(t, uint32(types.OnlySecured), negotiate.Uint32())
		backend.Secure()

		connect := backend.ExpectFrame(types.OpSSLConnect)
		require.Equal(t, uint32(types.OnlySecured), connect.Uint32())

		conn := tls.Server(backend.Conn(), &tls.Config{Certificates: []tls.Certificate{cert}})
		require.NoError(t, conn.Handshake())
		backend.Upgrade(conn)

		// session setup resumes over the secured transport
		ackMetadata(backend, metadataV6)

		backend.AuthOK()
		backend.ReadyForQuery()
	})

	drv := NewDriver(client,
		WithLogger(slogt.New(t)),
		WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
	)

	result, err := drv.Startup(context.Background(), "", types.OnlySecured, "admin", "pw", "")
	require.NoError(t, err)
	<-done

	require.NotSame(t, client, result.Conn)
	_, secured := result.Conn.(*tls.Conn)
	require.True(t, secured, "expected the returned connection to be TLS")
}

func TestSecureSessionRefused(t *testing.T) {
	client, backend, done := serve(t, func(backend *mock.Backend) {
		negotiate := backend.ExpectFrame(types.OpSSLNegotiate)
		require.Equal(t, uint32(types.OnlyUnsecured), negotiate.Uint32())
		backend.Secure()
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	err := drv.secureSession(context.Background(), types.OnlyUnsecured)
	<-done

	require.Error(t, err)
	require.Equal(t, codes.TLSRefused, npserr.GetCode(err))
	// the negotiation frame is the only client traffic
	require.Len(t, backend.Recorded(), 10)
}

func TestSecureSessionRequired(t *testing.T) {
	client, backend, done := serve(t, func(backend *mock.Backend) {
		backend.ExpectFrame(types.OpSSLNegotiate)
		backend.Accept()
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	err := drv.secureSession(context.Background(), types.OnlySecured)
	<-done

	require.Error(t, err)
	require.Equal(t, codes.TLSRequired, npserr.GetCode(err))
	require.Len(t, backend.Recorded(), 10)
}

func TestSecureSessionRejected(t *testing.T) {
	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.ExpectFrame(types.OpSSLNegotiate)
		backend.Reject()
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	err := drv.secureSession(context.Background(), types.PreferredSecured)
	<-done

	require.Error(t, err)
	require.Equal(t, codes.TLSRejected, npserr.GetCode(err))
}

func TestSecureSessionCleartext(t *testing.T) {
	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.ExpectFrame(types.OpSSLNegotiate)
		backend.Accept()
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	require.NoError(t, drv.secureSession(context.Background(), types.PreferredUnsecured))
	<-done
}

func TestUpgradeRefusesDirtyBuffer(t *testing.T) {
	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.ExpectFrame(types.OpSSLNegotiate)
		// a cleartext byte trailing the acceptance must abort the upgrade
		backend.Conn().Write([]byte{'S', 'x'}) //nolint:errcheck
		backend.ExpectFrame(types.OpSSLConnect)
	})

	drv := NewDriver(client,
		WithLogger(slogt.New(t)),
		WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
	)

	err := drv.secureSession(context.Background(), types.PreferredSecured)
	<-done

	require.Error(t, err)
	require.Equal(t, codes.BadProtocol, npserr.GetCode(err))
}

func TestTLSClientConfigBuild(t *testing.T) {
	cert, der := selfSignedCert(t)

	dir := t.TempDir()
	caFile := filepath.Join(dir, "ca.crt")
	certFile := filepath.Join(dir, "client.crt")
	keyFile := filepath.Join(dir, "client.key")

	caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, os.WriteFile(caFile, caPEM, 0o600))
	require.NoError(t, os.WriteFile(certFile, caPEM, 0o600))

	key, err := x509.MarshalECPrivateKey(cert.PrivateKey.(*ecdsa.PrivateKey))
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: key})
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))

	config, err := TLSClientConfig{
		CAFile:     caFile,
		CertFile:   certFile,
		KeyFile:    keyFile,
		ServerName: "localhost",
	}.Build()
	require.NoError(t, err)
	require.NotNil(t, config.RootCAs)
	require.Len(t, config.Certificates, 1)
	require.Equal(t, "localhost", config.ServerName)
	require.False(t, config.InsecureSkipVerify)
}

func TestTLSClientConfigBuildMissingCA(t *testing.T) {
	_, err := TLSClientConfig{CAFile: filepath.Join(t.TempDir(), "missing.crt")}.Build()
	require.Error(t, err)
}
