package qoi

import "errors"

var (
	// ErrFormat indicates a header that is not a valid qoi header.
	ErrFormat = errors.New("qoi: invalid format")
	// ErrTruncatedStream indicates an opcode that needs more bytes than remain.
	ErrTruncatedStream = errors.New("qoi: truncated stream")
	// ErrUnknownOpcode indicates a byte that is neither an opcode nor the end marker.
	ErrUnknownOpcode = errors.New("qoi: unknown opcode")
	// ErrStreamIntegrity indicates that the pixel count and the end marker disagree.
	ErrStreamIntegrity = errors.New("qoi: stream integrity")
	// ErrInvalidImage indicates encoder input that cannot be represented.
	ErrInvalidImage = errors.New("qoi: invalid image")
)
