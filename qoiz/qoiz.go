// Package qoiz wraps qoi streams in zstd or LZ4 frames.
//
// QOI leaves entropy coding out of the format; a general purpose compressor
// on top of the opcode stream often shrinks it further.
package qoiz

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names the compression around a qoi stream.
type Codec string

const (
	None Codec = "none"
	Zstd Codec = "zstd"
	LZ4  Codec = "lz4"
)

// maxDecodedSize matches the largest qoi stream the codec accepts.
const maxDecodedSize int64 = 2 << 30

var (
	// ErrUnknownCodec indicates a codec name this package does not know.
	ErrUnknownCodec = errors.New("unknown codec")
	// ErrCompress indicates compression failed.
	ErrCompress = errors.New("compress failed")
	// ErrDecompress indicates decompression failed.
	ErrDecompress = errors.New("decompress failed")
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// encoders and decoders are safe for concurrent EncodeAll/DecodeAll calls
var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(maxDecodedSize)))
	})
)

// Ext returns the file extension used for streams wrapped with c.
func (c Codec) Ext() string {
	switch c {
	case Zstd:
		return ".qoi.zst"
	case LZ4:
		return ".qoi.lz4"
	default:
		return ".qoi"
	}
}

// CodecForName picks the codec from a file name or a format name such as
// "qoi.zst". Anything else maps to None.
func CodecForName(name string) Codec {
	name = strings.ToLower(name)
	switch {
	case strings.HasSuffix(name, ".zst"):
		return Zstd
	case strings.HasSuffix(name, ".lz4"):
		return LZ4
	default:
		return None
	}
}

// Detect reports the codec of data from its frame magic.
func Detect(data []byte) Codec {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return Zstd
	case bytes.HasPrefix(data, lz4Magic):
		return LZ4
	default:
		return None
	}
}

// Wrap compresses a qoi stream with c. None returns the stream unchanged.
func Wrap(stream []byte, c Codec) ([]byte, error) {
	switch c {
	case None, "":
		return stream, nil

	case Zstd:
		enc, err := zstdEncoder()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompress, err)
		}
		return enc.EncodeAll(stream, make([]byte, 0, len(stream)/2)), nil

	case LZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if err := zw.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompress, err)
		}
		if _, err := zw.Write(stream); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompress, err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompress, err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, c)
	}
}

// Unwrap decompresses data if it starts with a zstd or LZ4 frame and
// returns the inner stream together with the detected codec.
func Unwrap(data []byte) ([]byte, Codec, error) {
	c := Detect(data)

	switch c {
	case Zstd:
		dec, err := zstdDecoder()
		if err != nil {
			return nil, c, fmt.Errorf("%w: %v", ErrDecompress, err)
		}
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, c, fmt.Errorf("%w: zstd: %v", ErrDecompress, err)
		}
		return out, c, nil

	case LZ4:
		zr := lz4.NewReader(bytes.NewReader(data))
		out, err := io.ReadAll(io.LimitReader(zr, maxDecodedSize+1))
		if err != nil {
			return nil, c, fmt.Errorf("%w: lz4: %v", ErrDecompress, err)
		}
		if int64(len(out)) > maxDecodedSize {
			return nil, c, fmt.Errorf("%w: lz4: stream exceeds %d bytes", ErrDecompress, maxDecodedSize)
		}
		return out, c, nil

	default:
		return data, None, nil
	}
}
