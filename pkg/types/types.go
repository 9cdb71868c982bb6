package types

// Opcode identifies a handshake frame send by the client. Every frame is
// prefixed with a big-endian int32 length (counting itself) followed by the
// opcode as a big-endian int16.
type Opcode int16

const (
	OpClientBegin  Opcode = 1
	OpDatabase     Opcode = 2
	OpUser         Opcode = 3
	OpOptions      Opcode = 4
	OpRemotePID    Opcode = 6
	OpClientType   Opcode = 8
	OpProtocol     Opcode = 9
	OpSSLNegotiate Opcode = 11
	OpSSLConnect   Opcode = 12
	OpAppName      Opcode = 13
	OpClientOS     Opcode = 14
	OpClientHost   Opcode = 15
	OpClientOSUser Opcode = 16
	OpVarlena64    Opcode = 17
	OpClientDone   Opcode = 1000
)

func (op Opcode) String() string {
	switch op {
	case OpClientBegin:
		return "ClientBegin"
	case OpDatabase:
		return "Database"
	case OpUser:
		return "User"
	case OpOptions:
		return "Options"
	case OpRemotePID:
		return "RemotePID"
	case OpClientType:
		return "ClientType"
	case OpProtocol:
		return "Protocol"
	case OpSSLNegotiate:
		return "SSLNegotiate"
	case OpSSLConnect:
		return "SSLConnect"
	case OpAppName:
		return "AppName"
	case OpClientOS:
		return "ClientOS"
	case OpClientHost:
		return "ClientHost"
	case OpClientOSUser:
		return "ClientOSUser"
	case OpVarlena64:
		return "Varlena64"
	case OpClientDone:
		return "ClientDone"
	default:
		return "Unknown"
	}
}

// ServerMessage represents a single-byte server response or post-auth message
// type. During session setup the server answers most client frames with a
// bare acknowledgment byte; after authentication it switches to typed
// messages.
type ServerMessage byte

const (
	// ServerAccept acknowledges a client frame. The same byte doubles as the
	// notice message type once authentication has started.
	ServerAccept      ServerMessage = 'N'
	ServerRenegotiate ServerMessage = 'M'
	ServerSecured     ServerMessage = 'S'
	ServerAuth        ServerMessage = 'R'
	ServerBackendKey  ServerMessage = 'K'
	ServerNotice      ServerMessage = 'N'
	ServerReady       ServerMessage = 'Z'
	ServerError       ServerMessage = 'E'
)

func (m ServerMessage) String() string {
	switch m {
	case ServerAccept:
		return "Accept"
	case ServerRenegotiate:
		return "Renegotiate"
	case ServerSecured:
		return "Secured"
	case ServerAuth:
		return "Auth"
	case ServerBackendKey:
		return "BackendKeyData"
	case ServerReady:
		return "Ready"
	case ServerError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Version is the connection-protocol version negotiated at the very start of
// the handshake. It controls which client metadata frames the server expects.
type Version int16

const (
	Version2 Version = 2
	Version3 Version = 3
	Version4 Version = 4
	Version5 Version = 5
	Version6 Version = 6
)

// AuditFrames reports whether the version family streams the extended audit
// metadata (application name, client OS, host name and OS user).
func (v Version) AuditFrames() bool {
	return v == Version4 || v == Version6
}

// Varlena64 reports whether the version announces 64-bit varlena support at
// the end of the metadata stream.
func (v Version) Varlena64() bool {
	return v == Version5 || v == Version6
}

// SecurityLevel expresses the client's TLS preference for the session.
type SecurityLevel int32

const (
	PreferredUnsecured SecurityLevel = 0
	OnlyUnsecured      SecurityLevel = 1
	PreferredSecured   SecurityLevel = 2
	OnlySecured        SecurityLevel = 3
)

func (l SecurityLevel) String() string {
	switch l {
	case PreferredUnsecured:
		return "PreferredUnsecured"
	case OnlyUnsecured:
		return "OnlyUnsecured"
	case PreferredSecured:
		return "PreferredSecured"
	case OnlySecured:
		return "OnlySecured"
	default:
		return "Unknown"
	}
}

// AuthMethod is the authentication scheme demanded by the server in response
// to the client metadata stream.
type AuthMethod int32

const (
	AuthOK        AuthMethod = 0
	AuthCleartext AuthMethod = 3
	AuthMD5       AuthMethod = 5
	AuthSHA256    AuthMethod = 6
)

func (m AuthMethod) String() string {
	switch m {
	case AuthOK:
		return "OK"
	case AuthCleartext:
		return "Cleartext"
	case AuthMD5:
		return "MD5"
	case AuthSHA256:
		return "SHA256"
	default:
		return "Unknown"
	}
}

// Sub-protocol versions walked during session setup. The major version is
// fixed; the minor version starts at the highest value and is lowered on
// renegotiation.
const (
	ProtocolMajor  int16 = 3
	ProtocolMinor3 int16 = 3
	ProtocolMinor4 int16 = 4
	ProtocolMinor5 int16 = 5
)

// ClientType is the client implementation identifier announced to the server
// inside the metadata stream.
const ClientType int16 = 15

// Varlena64Enabled is the value send along the Varlena64 frame.
const Varlena64Enabled int16 = 1
