package wire

import "errors"

// Parse error signals, per spec.md §4.1. TRUNCATED, a missing prefix
// (ErrBadPrefix) and UNSUPPORTED_VERSION cause Decode to reject the
// buffer outright. Decode does not return ErrUnknownType: an
// unrecognized type tag still decodes as an envelope (see Decode).
// LENGTH_MISMATCH is non-fatal: it is returned alongside a successfully
// decoded sub-packet so the caller can log a warning while still using
// the packet.
var (
	ErrTruncated          = errors.New("wire: truncated packet")
	ErrUnknownType        = errors.New("wire: unknown packet type")
	ErrUnsupportedVersion = errors.New("wire: unsupported protocol version")
	ErrBadPrefix          = errors.New("wire: missing communication packet prefix")
	ErrInvalidPacket      = errors.New("wire: invalid packet")

	// ErrLengthMismatch is returned by sub-packet decoders alongside a
	// best-effort parse when the declared payload length disagrees with
	// the number of remaining bytes.
	ErrLengthMismatch = errors.New("wire: declared length mismatch")
)
