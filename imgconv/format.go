package imgconv

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrDecodeImage indicates the source could not be decoded.
	ErrDecodeImage = errors.New("decode image failed")
	// ErrEncodeImage indicates the target could not be encoded.
	ErrEncodeImage = errors.New("encode image failed")
	// ErrUnsupportedFormat indicates a target format this package cannot write.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// DefaultJPEGQuality is used when EncodeOptions leaves JPEGQuality at zero.
const DefaultJPEGQuality = 90

// EncodeOptions tune EncodeFormatWithOptions.
type EncodeOptions struct {
	JPEGQuality int
}

// DecodeFormat decodes any registered raster format (PNG, JPEG, GIF, BMP,
// TIFF, WebP) into a Raster and reports the format name. Opaque images
// yield 3 channels.
func DecodeFormat(data []byte) (Raster, string, error) {
	m, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Raster{}, "", fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}

	return FromImage(m, OpaqueChannels(m)), format, nil
}

// NormalizeFormat maps file extensions and aliases to format names.
func NormalizeFormat(name string) string {
	name = strings.TrimPrefix(strings.ToLower(name), ".")
	switch name {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	default:
		return name
	}
}

// EncodeFormat encodes r as png, jpeg, gif, bmp or tiff with default options.
func EncodeFormat(r Raster, target string) ([]byte, error) {
	return EncodeFormatWithOptions(r, target, nil)
}

// EncodeFormatWithOptions encodes r as the target format. JPEG has no alpha
// channel, RGBA rasters are composited onto black for it.
func EncodeFormatWithOptions(r Raster, target string, o *EncodeOptions) ([]byte, error) {
	img, err := r.Image()
	if err != nil {
		return nil, err
	}

	quality := DefaultJPEGQuality
	if o != nil && o.JPEGQuality > 0 {
		quality = o.JPEGQuality
	}

	var buf bytes.Buffer

	switch NormalizeFormat(target) {
	case "png":
		enc := png.Encoder{
			CompressionLevel: png.BestCompression,
			BufferPool:       pngPool,
		}
		err = enc.Encode(&buf, img)
	case "jpeg":
		var m image.Image = img
		if r.Channels == 4 {
			m = ToRGBA(img)
		}
		err = jpeg.Encode(&buf, m, &jpeg.Options{Quality: quality})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, target)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncodeImage, target, err)
	}

	return buf.Bytes(), nil
}

type pngEncoderBufferPool struct {
	pool sync.Pool
}

func (p *pngEncoderBufferPool) Get() *png.EncoderBuffer {
	return p.pool.Get().(*png.EncoderBuffer)
}

func (p *pngEncoderBufferPool) Put(buf *png.EncoderBuffer) {
	p.pool.Put(buf)
}

var pngPool = &pngEncoderBufferPool{
	pool: sync.Pool{
		New: func() any {
			return &png.EncoderBuffer{}
		},
	},
}
