package wire

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"hash"
	"log/slog"
	"strings"

	"github.com/npsdb/nps-wire/codes"
	"github.com/npsdb/nps-wire/pkg/types"
)

// authenticate answers the server-selected authentication challenge. The
// server either considers the session authenticated already or demands a
// credential: the password in clear text, or a salted digest of it. The
// server verdict on the credential arrives with the completion preamble and
// is consumed there.
func (drv *Driver) authenticate(ctx context.Context, password string) error {
	resp, err := drv.reader.ReadByte()
	if err != nil {
		return err
	}

	// a trailing metadata acknowledgment may precede the request
	if types.ServerMessage(resp) == types.ServerAccept {
		resp, err = drv.reader.ReadByte()
		if err != nil {
			return err
		}
	}

	if types.ServerMessage(resp) != types.ServerAuth {
		return failf(codes.UnexpectedMessage, "expected an authentication request, got %q", resp)
	}

	code, err := drv.reader.ReadInt32()
	if err != nil {
		return err
	}

	method := types.AuthMethod(code)
	drv.logger.Debug("authentication requested", slog.String("method", method.String()))

	switch method {
	case types.AuthOK:
		return nil
	case types.AuthCleartext:
		return drv.sendCredential(password)
	case types.AuthMD5:
		return drv.sendSaltedCredential(md5.New(), password)
	case types.AuthSHA256:
		return drv.sendSaltedCredential(sha256.New(), password)
	default:
		return failf(codes.UnsupportedAuthMethod, "server demanded unsupported authentication method %d", code)
	}
}

// sendSaltedCredential reads the two-byte salt accompanying the challenge
// and responds with the encoded digest of salt and password.
func (drv *Driver) sendSaltedCredential(digest hash.Hash, password string) error {
	salt, err := drv.reader.ReadExact(2)
	if err != nil {
		return err
	}

	return drv.sendCredential(saltedCredential(digest, salt, password))
}

// saltedCredential derives the credential string for the salted
// authentication schemes: the digest of salt followed by password, base64
// encoded with the trailing padding stripped.
func saltedCredential(digest hash.Hash, salt []byte, password string) string {
	digest.Write(salt)
	digest.Write([]byte(password))

	encoded := base64.StdEncoding.EncodeToString(digest.Sum(nil))
	return strings.TrimRight(encoded, "=")
}

// sendCredential frames the credential as a null-terminated string without a
// leading opcode.
func (drv *Driver) sendCredential(credential string) error {
	drv.writer.StartPacket()
	drv.writer.AddString(credential)
	drv.writer.AddNullTerminate()
	return drv.writer.End()
}
