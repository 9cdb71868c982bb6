package wire

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/npsdb/nps-wire/codes"
	npserr "github.com/npsdb/nps-wire/errors"
	"github.com/npsdb/nps-wire/pkg/mock"
	"github.com/npsdb/nps-wire/pkg/types"
)

func TestAuthenticateAlreadyAuthenticated(t *testing.T) {
	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.AuthOK()
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	require.NoError(t, drv.authenticate(context.Background(), "pw"))
	<-done
}

func TestAuthenticateSkipsLeadingAcknowledgment(t *testing.T) {
	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.Accept()
		backend.AuthOK()
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	require.NoError(t, drv.authenticate(context.Background(), "pw"))
	<-done
}

func TestAuthenticateCleartext(t *testing.T) {
	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.AuthRequest(types.AuthCleartext, nil)
		require.Equal(t, []byte("hunter2\x00"), backend.ReadPacket())
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	require.NoError(t, drv.authenticate(context.Background(), "hunter2"))
	<-done
}

func TestAuthenticateSaltedMD5(t *testing.T) {
	salt := []byte{0xAB, 0xCD}

	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.AuthRequest(types.AuthMD5, salt)

		digest := md5.Sum(append(append([]byte{}, salt...), []byte("secret")...))
		encoded := strings.TrimRight(base64.StdEncoding.EncodeToString(digest[:]), "=")
		require.Equal(t, append([]byte(encoded), 0), backend.ReadPacket())
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	require.NoError(t, drv.authenticate(context.Background(), "secret"))
	<-done
}

func TestAuthenticateSaltedSHA256(t *testing.T) {
	salt := []byte{0x01, 0x02}

	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.AuthRequest(types.AuthSHA256, salt)

		digest := sha256.Sum256(append(append([]byte{}, salt...), []byte("secret")...))
		encoded := strings.TrimRight(base64.StdEncoding.EncodeToString(digest[:]), "=")
		require.Equal(t, append([]byte(encoded), 0), backend.ReadPacket())
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	require.NoError(t, drv.authenticate(context.Background(), "secret"))
	<-done
}

func TestAuthenticateUnsupportedMethod(t *testing.T) {
	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.AuthRequest(types.AuthMethod(2), nil)
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	err := drv.authenticate(context.Background(), "pw")
	<-done

	require.Error(t, err)
	require.Equal(t, codes.UnsupportedAuthMethod, npserr.GetCode(err))
}

func TestAuthenticateUnexpectedMessage(t *testing.T) {
	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.Conn().Write([]byte{'X'}) //nolint:errcheck
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	err := drv.authenticate(context.Background(), "pw")
	<-done

	require.Error(t, err)
	require.Equal(t, codes.UnexpectedMessage, npserr.GetCode(err))
}

func TestSaltedCredentialPadding(t *testing.T) {
	salt := []byte{0xAB, 0xCD}
	credential := saltedCredential(md5.New(), salt, "secret")

	require.False(t, strings.HasSuffix(credential, "="))

	// re-adding the stripped padding must round-trip to the digest bytes
	padded := credential + strings.Repeat("=", (4-len(credential)%4)%4)
	decoded, err := base64.StdEncoding.DecodeString(padded)
	require.NoError(t, err)

	expected := md5.Sum(append(append([]byte{}, salt...), []byte("secret")...))
	require.Equal(t, expected[:], decoded)
}
