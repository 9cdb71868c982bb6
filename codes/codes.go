package codes

// Code classifies a connection failure. Every error surfaced by this library
// carries exactly one code; callers are expected to branch on the code rather
// than on error strings.
type Code string

var (
	// BadProtocol indicates that the server answered with a byte outside the
	// small set the protocol admits at that point.
	BadProtocol Code = "bad_protocol"
	// BadAttributeValue indicates that the server rejected the initial
	// version announcement outright.
	BadAttributeValue Code = "bad_attribute_value"
	// UnsupportedVersion indicates a version counter-offer outside the
	// supported range.
	UnsupportedVersion Code = "unsupported_version"
	// ProtocolExhausted indicates that the sub-protocol walk ran past its
	// floor without the server accepting any minor version.
	ProtocolExhausted Code = "protocol_exhausted"
	// DatabaseRejected indicates that the server refused the requested
	// database.
	DatabaseRejected Code = "database_rejected"
	// TLSRefused indicates that the server insists on a secured session while
	// the client only allows unsecured ones.
	TLSRefused Code = "tls_refused"
	// TLSRequired indicates that the server only offers unsecured sessions
	// while the client requires a secured one.
	TLSRequired Code = "tls_required"
	// TLSRejected indicates that the server failed the security negotiation.
	TLSRejected Code = "tls_rejected"
	// TLSHandshakeFailed indicates a TLS library failure during the in-band
	// connection upgrade.
	TLSHandshakeFailed Code = "tls_handshake_failed"
	// UnsupportedAuthMethod indicates an authentication scheme this client
	// does not implement.
	UnsupportedAuthMethod Code = "unsupported_auth_method"
	// ServerError carries an error message produced by the server after
	// authentication.
	ServerError Code = "server_error"
	// UnexpectedMessage indicates a missing or mislabeled authentication
	// request.
	UnexpectedMessage Code = "unexpected_message"
	// Timeout indicates that no byte arrived within the read deadline.
	Timeout Code = "timeout"
	// TransportClosed indicates end-of-stream before the expected bytes
	// arrived.
	TransportClosed Code = "transport_closed"
	// ConnectionFailure indicates that the server aborted the session setup.
	ConnectionFailure Code = "connection_failure"
	// Uncategorized is the fallback for errors without an explicit code.
	Uncategorized Code = "uncategorized"
)
