package qoi

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/LukiDS/qoiconv/imgconv"
)

type decoder struct {
	h    Descriptor
	data []byte
	off  int
	pix  []byte
	err  error
}

func (d *decoder) decodeHeader() {
	if d.h, d.err = UnpackHeader(d.data); d.err != nil {
		return
	}

	if err := d.h.validate(); err != nil {
		d.err = fmt.Errorf("%w: %v", ErrFormat, err)
		return
	}

	// one opcode byte yields at most qoiMaxRunSize pixels
	minOps := (d.h.PixelCount() + qoiMaxRunSize - 1) / qoiMaxRunSize
	if have := uint64(len(d.data) - qoiHeaderSize); have < minOps {
		d.err = fmt.Errorf("%w: %d pixels need at least %d opcode bytes, have %d", ErrTruncatedStream, d.h.PixelCount(), minOps, have)
		return
	}

	d.off = qoiHeaderSize
}

// decode reads opcodes until Width*Height pixels have been produced. Up to
// that point a 0x00 byte is always an index opcode; the end marker is only
// looked for once the image is complete (see decodePadding). The single
// exception is a stream whose remaining bytes are exactly the end marker,
// which means the image ended early.
func (d *decoder) decode() {
	if d.err != nil {
		return
	}

	channels := int(d.h.Channels)
	maxPixel := int(d.h.PixelCount())
	d.pix = make([]byte, maxPixel*channels)

	pixelBuffer := newColorCache()
	prevPixel := color.NRGBA{0, 0, 0, 255}

	for pxPos := 0; pxPos < maxPixel; {
		rest := d.data[d.off:]
		if len(rest) == 0 {
			d.err = fmt.Errorf("%w: stream ended after %d of %d pixels", ErrTruncatedStream, pxPos, maxPixel)
			return
		}

		if bytes.Equal(rest, qoiEndMarker) {
			d.err = fmt.Errorf("%w: end marker after %d of %d pixels", ErrStreamIntegrity, pxPos, maxPixel)
			return
		}

		b1 := rest[0]
		kind := classify(b1)
		// unreachable: the 2-bit tags cover every byte value
		if kind == 0 {
			d.err = fmt.Errorf("%w: 0x%02x at offset %d", ErrUnknownOpcode, b1, d.off)
			return
		}

		if kind.size() > len(rest) {
			d.err = fmt.Errorf("%w: %s opcode at offset %d needs %d bytes, have %d", ErrTruncatedStream, kind, d.off, kind.size(), len(rest))
			return
		}

		run := 1

		switch kind {
		case kindRGBA:
			prevPixel = color.NRGBA{rest[1], rest[2], rest[3], rest[4]}

		case kindRGB:
			prevPixel.R = rest[1]
			prevPixel.G = rest[2]
			prevPixel.B = rest[3]

		case kindIndex:
			prevPixel = pixelBuffer.lookup(b1 & mask6)

		case kindDiff:
			prevPixel.R += ((b1 >> 4) & mask2) - 2
			prevPixel.G += ((b1 >> 2) & mask2) - 2
			prevPixel.B += ((b1 >> 0) & mask2) - 2

		case kindLuma:
			b2 := rest[1]
			vg := (b1 & mask6) - 32

			prevPixel.R += vg - 8 + ((b2 >> 4) & mask4)
			prevPixel.G += vg
			prevPixel.B += vg - 8 + ((b2 >> 0) & mask4)

		case kindRun:
			run = int(b1&mask6) + 1
			if pxPos+run > maxPixel {
				d.err = fmt.Errorf("%w: run of %d at offset %d overshoots %d pixels", ErrStreamIntegrity, run, d.off, maxPixel)
				return
			}

		default:
			// unreachable: classify maps every byte value to an opcode
			d.err = fmt.Errorf("%w: %s at offset %d", ErrUnknownOpcode, kind, d.off)
			return
		}

		d.off += kind.size()

		// every produced pixel re-stores its slot, runs and index hits included
		for ; run > 0; run-- {
			pixelBuffer.store(hash(prevPixel), prevPixel)

			o := pxPos * channels
			d.pix[o] = prevPixel.R
			d.pix[o+1] = prevPixel.G
			d.pix[o+2] = prevPixel.B
			if channels == 4 {
				d.pix[o+3] = prevPixel.A
			}
			pxPos++
		}
	}
}

// decodePadding requires the stream to end with exactly the end marker.
func (d *decoder) decodePadding() {
	if d.err != nil {
		return
	}

	rest := d.data[d.off:]

	switch {
	case bytes.Equal(rest, qoiEndMarker):
		return
	case len(rest) == 0:
		d.err = fmt.Errorf("%w: missing end marker after last pixel", ErrStreamIntegrity)
	case len(rest) < len(qoiEndMarker) && bytes.HasPrefix(qoiEndMarker, rest):
		d.err = fmt.Errorf("%w: end marker cut after %d bytes", ErrTruncatedStream, len(rest))
	default:
		d.err = fmt.Errorf("%w: %d bytes after last pixel are not the end marker", ErrStreamIntegrity, len(rest))
	}
}

// DecodePixels decodes a complete qoi stream into its descriptor and a
// row-major pixel buffer of Width*Height*Channels bytes.
func DecodePixels(data []byte) (Descriptor, []byte, error) {
	d := decoder{
		data: data,
	}

	d.decodeHeader()
	d.decode()
	d.decodePadding()

	if d.err != nil {
		return Descriptor{}, nil, d.err
	}

	return d.h, d.pix, nil
}

// DecodeConfig returns the dimensions of a qoi image without decoding it.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h := make([]byte, qoiHeaderSize)
	if _, err := io.ReadFull(r, h); err != nil {
		return image.Config{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	desc, err := UnpackHeader(h)
	if err != nil {
		return image.Config{}, err
	}

	if err := desc.validate(); err != nil {
		return image.Config{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(desc.Width),
		Height:     int(desc.Height),
	}, nil
}

// Decode reads a qoi image from r. The result is always an *image.NRGBA;
// 3 channel images come back opaque.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	desc, pix, err := DecodePixels(data)
	if err != nil {
		return nil, err
	}

	raster := imgconv.Raster{
		Width:    int(desc.Width),
		Height:   int(desc.Height),
		Channels: desc.Channels,
		Pix:      pix,
	}

	m, err := raster.Image()
	if err != nil {
		return nil, err
	}

	return m, nil
}
