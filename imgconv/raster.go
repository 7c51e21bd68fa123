package imgconv

import (
	"errors"
	"fmt"
	"image"
)

// ErrBufferSize indicates a pixel buffer that does not match its dimensions.
var ErrBufferSize = errors.New("pixel buffer size mismatch")

// Raster is an uncompressed row-major pixel buffer without padding.
// Pix holds Width*Height*Channels bytes, RGB or RGBA.
type Raster struct {
	Width    int
	Height   int
	Channels uint8
	Pix      []byte
}

// FromImage flattens m into a Raster. Channels other than 3 yield RGBA.
func FromImage(m image.Image, channels uint8) Raster {
	if channels != 3 {
		channels = 4
	}

	src := ToNRGBA(m)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	r := Raster{
		Width:    w,
		Height:   h,
		Channels: channels,
		Pix:      make([]byte, w*h*int(channels)),
	}

	if w <= 0 || h <= 0 {
		return r
	}

	dst := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, y) : src.PixOffset(b.Min.X, y)+4*w]
		if channels == 4 {
			dst += copy(r.Pix[dst:], row)
			continue
		}

		for x := 0; x < len(row); x += 4 {
			dst += copy(r.Pix[dst:dst+3], row[x:x+3])
		}
	}

	return r
}

func (r Raster) check() error {
	if r.Channels != 3 && r.Channels != 4 {
		return fmt.Errorf("%w: channels %d not in [3,4]", ErrBufferSize, r.Channels)
	}

	if r.Width < 0 || r.Height < 0 || len(r.Pix) != r.Width*r.Height*int(r.Channels) {
		return fmt.Errorf("%w: %d bytes for %dx%dx%d", ErrBufferSize, len(r.Pix), r.Width, r.Height, r.Channels)
	}

	return nil
}

// Image returns the raster as an *image.NRGBA. RGB rasters are opaque.
func (r Raster) Image() (*image.NRGBA, error) {
	if err := r.check(); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	if r.Channels == 4 {
		copy(img.Pix, r.Pix)
		return img, nil
	}

	for src, dst := 0, 0; src < len(r.Pix); src, dst = src+3, dst+4 {
		img.Pix[dst] = r.Pix[src]
		img.Pix[dst+1] = r.Pix[src+1]
		img.Pix[dst+2] = r.Pix[src+2]
		img.Pix[dst+3] = 255
	}

	return img, nil
}

// WithChannels returns r converted to the given channel count. Dropping
// alpha discards it, adding alpha makes every pixel opaque.
func (r Raster) WithChannels(channels uint8) (Raster, error) {
	if err := r.check(); err != nil {
		return Raster{}, err
	}

	if channels == r.Channels {
		return r, nil
	}

	if channels != 3 && channels != 4 {
		return Raster{}, fmt.Errorf("%w: channels %d not in [3,4]", ErrBufferSize, channels)
	}

	img, err := r.Image()
	if err != nil {
		return Raster{}, err
	}

	return FromImage(img, channels), nil
}
