package protocol

import "errors"

// Decode-time errors. These distinguish malformed wire data (recoverable,
// reported to the peer) from programmer errors raised by the typed
// constructors (unrecoverable, expected to fail loudly in tests).
var (
	// ErrMalformedPDU is returned by Decode when the frame is not a mapping,
	// is missing __version__ or msg_type, names an unsupported version, or
	// omits a required argument for a known type in that version.
	ErrMalformedPDU = errors.New("protocol: malformed PDU")

	// ErrUnsupportedVersion is returned by Encode when asked to encode into
	// a version other than the message's native version, in a codec that
	// does not support down/up-conversion to that version.
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")

	// ErrUnknownArg is returned by accessors when a caller asks for an
	// argument name the message's type does not declare at all. It is
	// distinguishable from a present-but-null argument, which returns
	// (nil, nil).
	ErrUnknownArg = errors.New("protocol: unknown argument")
)

// requiredArgError is a programmer error: a typed constructor was asked to
// build a known message type without one of its required arguments. It is
// never returned to a caller as an error value — typed constructors cannot
// be called this way in Go since required arguments are plain function
// parameters — but Decode's internal validation uses the same message text
// when it turns the condition into ErrMalformedPDU for untrusted wire data.
type requiredArgError struct {
	msgType string
	arg     string
}

func (e requiredArgError) Error() string {
	return "protocol: " + e.msgType + " message missing required argument " + e.arg
}
