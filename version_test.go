package wire

import (
	"context"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/npsdb/nps-wire/codes"
	npserr "github.com/npsdb/nps-wire/errors"
	"github.com/npsdb/nps-wire/pkg/mock"
	"github.com/npsdb/nps-wire/pkg/types"
)

func TestNegotiateVersionWalk(t *testing.T) {
	client, _, done := serve(t, func(backend *mock.Backend) {
		begin := backend.ExpectFrame(types.OpClientBegin)
		require.Equal(t, uint16(6), begin.Uint16())
		backend.Renegotiate('4')

		begin = backend.ExpectFrame(types.OpClientBegin)
		require.Equal(t, uint16(4), begin.Uint16())
		backend.Accept()
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	require.NoError(t, drv.negotiateVersion(context.Background()))
	<-done

	require.Equal(t, types.Version4, drv.hsVersion)
	require.Zero(t, drv.protocol2)
}

func TestNegotiateVersionUnsupportedOffer(t *testing.T) {
	for _, digit := range []byte{'1', '6'} {
		t.Run(string(digit), func(t *testing.T) {
			client, _, done := serve(t, func(backend *mock.Backend) {
				backend.ExpectFrame(types.OpClientBegin)
				backend.Renegotiate(digit)
			})

			drv := NewDriver(client, WithLogger(slogt.New(t)))
			err := drv.negotiateVersion(context.Background())
			<-done

			require.Error(t, err)
			require.Equal(t, codes.UnsupportedVersion, npserr.GetCode(err))
		})
	}
}

func TestNegotiateVersionRejected(t *testing.T) {
	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.ExpectFrame(types.OpClientBegin)
		backend.Reject()
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	err := drv.negotiateVersion(context.Background())
	<-done

	require.Error(t, err)
	require.Equal(t, codes.BadAttributeValue, npserr.GetCode(err))
}

func TestNegotiateVersionBadProtocol(t *testing.T) {
	client, _, done := serve(t, func(backend *mock.Backend) {
		backend.ExpectFrame(types.OpClientBegin)
		backend.Conn().Write([]byte{'X'}) //nolint:errcheck
	})

	drv := NewDriver(client, WithLogger(slogt.New(t)))
	err := drv.negotiateVersion(context.Background())
	<-done

	require.Error(t, err)
	require.Equal(t, codes.BadProtocol, npserr.GetCode(err))
}
