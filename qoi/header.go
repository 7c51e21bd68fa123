package qoi

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Descriptor is the image description carried by a qoi header.
type Descriptor struct {
	Width      uint32
	Height     uint32
	Channels   uint8
	Colorspace uint8
}

// PixelCount returns Width*Height.
func (d Descriptor) PixelCount() uint64 {
	return uint64(d.Width) * uint64(d.Height)
}

// validate reports whether the described image fits the codec limits.
func (d Descriptor) validate() error {
	if d.Channels < 3 || d.Channels > 4 {
		return fmt.Errorf("channels %d not in [3,4]", d.Channels)
	}

	if d.Width == 0 || d.Height == 0 || d.PixelCount() > qoiMaxPixels {
		return fmt.Errorf("image size %dx%d invalid", d.Width, d.Height)
	}

	return nil
}

// PackHeader serializes d into the fixed 14 byte header.
func PackHeader(d Descriptor) [qoiHeaderSize]byte {
	var h [qoiHeaderSize]byte

	copy(h[:4], qoiMagic)
	binary.BigEndian.PutUint32(h[4:8], d.Width)
	binary.BigEndian.PutUint32(h[8:12], d.Height)
	h[12] = d.Channels
	h[13] = d.Colorspace

	return h
}

// UnpackHeader parses the header at the start of b. Only the magic and the
// length are checked; channel and size limits are left to the decoder.
func UnpackHeader(b []byte) (Descriptor, error) {
	if len(b) < qoiHeaderSize {
		return Descriptor{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrFormat, qoiHeaderSize, len(b))
	}

	if !bytes.Equal(b[:4], []byte(qoiMagic)) {
		return Descriptor{}, fmt.Errorf("%w: bad magic %q", ErrFormat, b[:4])
	}

	return Descriptor{
		Width:      binary.BigEndian.Uint32(b[4:8]),
		Height:     binary.BigEndian.Uint32(b[8:12]),
		Channels:   b[12],
		Colorspace: b[13],
	}, nil
}
