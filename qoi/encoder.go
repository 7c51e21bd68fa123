package qoi

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/LukiDS/qoiconv/imgconv"
)

// Options are the encoding parameters for Encode.
type Options struct {
	// Channels is 3 (RGB) or 4 (RGBA). Zero means 4.
	Channels uint8
	// Colorspace is written to the header unchanged.
	Colorspace uint8
}

type encoder struct {
	w   io.Writer
	d   Descriptor
	pix []byte
	err error
}

// Encode writes the Image m to w in QOI format as 4 channel sRGB.
// Any Image may be encoded, images that are not image.NRGBA are converted
// first and may lose precision.
func Encode(w io.Writer, m image.Image) error {
	return EncodeWithOptions(w, m, nil)
}

// EncodeWithOptions writes the Image m to w in QOI format using o.
// A nil o behaves like Encode.
func EncodeWithOptions(w io.Writer, m image.Image, o *Options) error {
	channels, colorspace := qoiDefaultChannel, qoiDefaultColorSpace
	if o != nil {
		if o.Channels != 0 {
			channels = o.Channels
		}
		colorspace = o.Colorspace
	}

	mw, mh := m.Bounds().Dx(), m.Bounds().Dy()
	if mw <= 0 || mh <= 0 || mw*mh > qoiMaxPixels {
		return fmt.Errorf("%w: image size %dx%d", ErrInvalidImage, mw, mh)
	}

	if channels != 3 && channels != 4 {
		return fmt.Errorf("%w: channels %d not in [3,4]", ErrInvalidImage, channels)
	}

	r := imgconv.FromImage(m, channels)

	bw := bufio.NewWriter(w)
	e := encoder{
		w: bw,
		d: Descriptor{
			Width:      uint32(r.Width),
			Height:     uint32(r.Height),
			Channels:   channels,
			Colorspace: colorspace,
		},
		pix: r.Pix,
	}

	if err := e.encode(); err != nil {
		return err
	}

	return bw.Flush()
}

// EncodePixels encodes a row-major pixel buffer described by d. pix must hold
// exactly Width*Height*Channels bytes; for 3 channels alpha is taken as 255.
func EncodePixels(d Descriptor, pix []byte) ([]byte, error) {
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if want := d.PixelCount() * uint64(d.Channels); uint64(len(pix)) != want {
		return nil, fmt.Errorf("%w: pixel buffer has %d bytes, want %d", ErrInvalidImage, len(pix), want)
	}

	buf := bytes.NewBuffer(make([]byte, 0, qoiHeaderSize+len(pix)/2+len(qoiEndMarker)))
	e := encoder{
		w:   buf,
		d:   d,
		pix: pix,
	}

	if err := e.encode(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (e *encoder) encode() error {
	e.encodeHeader()
	e.encodeBody()
	e.encodeEndMarker()

	return e.err
}

func (e *encoder) encodeHeader() {
	h := PackHeader(e.d)
	e.writeBytes(h[:]...)
}

func (e *encoder) encodeEndMarker() {
	if e.err != nil {
		return
	}

	e.writeBytes(qoiEndMarker...)
}

func (e *encoder) encodeBody() {
	if e.err != nil {
		return
	}

	index := newColorCache()
	channels := int(e.d.Channels)

	run := 0
	pxPrev := color.NRGBA{0, 0, 0, 255}
	px := pxPrev

	for pxOff := 0; pxOff < len(e.pix); pxOff += channels {
		if e.err != nil {
			return
		}

		px.R = e.pix[pxOff]
		px.G = e.pix[pxOff+1]
		px.B = e.pix[pxOff+2]
		if channels == 4 {
			px.A = e.pix[pxOff+3]
		}

		if px == pxPrev {
			run++
			if run == qoiMaxRunSize {
				e.flushRun(&run)
			}
			continue
		}

		e.flushRun(&run)
		e.encodePixel(&index, px, pxPrev)
		pxPrev = px
	}

	// a run still pending after the last pixel belongs to the stream
	e.flushRun(&run)
}

func (e *encoder) flushRun(run *int) {
	if *run == 0 {
		return
	}

	e.writeBytes(opRUN | uint8(*run-1))
	*run = 0
}

// encodePixel emits px as an index, diff, luma, rgb or rgba opcode. Every
// path except an index hit stores px in the cache first.
func (e *encoder) encodePixel(index *colorCache, px, pxPrev color.NRGBA) {
	indexPos := hash(px)
	if index.lookup(indexPos) == px {
		e.writeBytes(opINDEX | indexPos)
		return
	}

	index.store(indexPos, px)

	if px.A != pxPrev.A {
		e.writeBytes(opRGBA, px.R, px.G, px.B, px.A)
		return
	}

	// deltas wrap around like the reference encoder: 255 -> 0 is +1
	vr := int8(px.R - pxPrev.R)
	vg := int8(px.G - pxPrev.G)
	vb := int8(px.B - pxPrev.B)

	vgR := vr - vg
	vgB := vb - vg

	switch {
	case vr > -3 && vr < 2 && vg > -3 && vg < 2 && vb > -3 && vb < 2:
		e.writeBytes(opDIFF | uint8(vr+2)<<4 | uint8(vg+2)<<2 | uint8(vb+2))
	case vgR > -9 && vgR < 8 && vg > -33 && vg < 32 && vgB > -9 && vgB < 8:
		e.writeBytes(opLUMA|uint8(vg+32), uint8(vgR+8)<<4|uint8(vgB+8))
	default:
		e.writeBytes(opRGB, px.R, px.G, px.B)
	}
}

func (e *encoder) writeBytes(data ...byte) {
	if e.err != nil {
		return
	}

	if _, err := e.w.Write(data); err != nil {
		e.err = err
	}
}
