// Package framing implements the zero-delimited, Consistent-Overhead
// Byte-Stuffing wire framer shared by every role. A connection is a
// sequence of COBS-encoded frames, each separated by a single zero byte;
// since COBS output never contains a zero byte, the delimiter is
// unambiguous regardless of payload contents.
package framing

import "errors"

// ErrEmptyFrame is returned by Decode when given a zero-length encoded
// frame (a frame must contain at least the length-prefix byte COBS
// always emits).
var ErrEmptyFrame = errors.New("framing: empty frame")

// ErrCorruptFrame is returned by Decode when the encoded bytes do not
// follow the COBS length-prefix structure (a code byte points past the
// end of the buffer, or is zero where a length code is expected).
var ErrCorruptFrame = errors.New("framing: corrupt COBS frame")

// Encode applies Consistent-Overhead Byte Stuffing to payload, returning a
// zero-free byte slice suitable for delimiting with a single 0x00 byte on
// the wire. The empty payload encodes to a single 0x01 byte.
func Encode(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+len(payload)/254+2)

	codeIdx := 0
	out = append(out, 0) // placeholder, patched by the first flush
	code := byte(1)

	flush := func() {
		out[codeIdx] = code
		codeIdx = len(out)
		out = append(out, 0)
		code = 1
	}

	for _, b := range payload {
		if b == 0 {
			flush()
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			flush()
		}
	}
	out[codeIdx] = code

	return out
}

// Decode reverses Encode, reconstructing the original payload from a
// zero-free COBS-encoded block (with the trailing zero delimiter already
// stripped by the caller).
func Decode(encoded []byte) ([]byte, error) {
	if len(encoded) == 0 {
		return nil, ErrEmptyFrame
	}

	out := make([]byte, 0, len(encoded))
	i := 0
	for i < len(encoded) {
		code := int(encoded[i])
		if code == 0 {
			return nil, ErrCorruptFrame
		}
		i++
		end := i + code - 1
		if end > len(encoded) {
			return nil, ErrCorruptFrame
		}
		out = append(out, encoded[i:end]...)
		i = end
		if code < 0xFF && i < len(encoded) {
			out = append(out, 0)
		}
	}

	return out, nil
}
