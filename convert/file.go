package convert

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/LukiDS/qoiconv/imgconv"
	"github.com/LukiDS/qoiconv/qoi"
	"github.com/LukiDS/qoiconv/qoiz"
)

// ErrUnknownType indicates a source file that is not a supported image.
var ErrUnknownType = errors.New("unexpected file type")

const formatQOI = "qoi"

// knownExts are stripped from source names, longest suffixes first.
var knownExts = []string{
	".qoi.zst", ".qoi.lz4",
	".jpeg", ".tiff", ".webp",
	".jpg", ".png", ".qoi", ".bmp", ".tif", ".gif",
}

func stripName(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range knownExts {
		if strings.HasSuffix(lower, ext) && len(name) > len(ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// sourceFormat sniffs the content; the name only shows up in errors.
func sourceFormat(data []byte, name string) (string, error) {
	if qoiz.Detect(data) != qoiz.None {
		return formatQOI, nil
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %q (extension %q): %v", ErrUnknownType, filepath.Base(name), filepath.Ext(name), err)
	}

	return format, nil
}

func (c *CLICmd) isQOITarget() bool {
	return strings.HasPrefix(c.To, formatQOI)
}

func (c *CLICmd) targetExt() string {
	if c.isQOITarget() {
		return qoiz.CodecForName(c.To).Ext()
	}
	return "." + imgconv.NormalizeFormat(c.To)
}

// convertFile converts one file and returns the path it was written to.
func (c *CLICmd) convertFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read source file %q: %w", path, err)
	}

	from, err := sourceFormat(data, path)
	if err != nil {
		return "", err
	}

	out, err := c.transcode(data, from)
	if err != nil {
		return "", fmt.Errorf("could not convert %s %q: %w", from, path, err)
	}

	destDir := c.Dest
	if destDir == "" {
		destDir = filepath.Dir(path)
	}
	destName := stripName(filepath.Base(path)) + c.targetExt()

	if err := save(out, destDir, destName, c.Overwrite); err != nil {
		return "", err
	}

	return filepath.Join(destDir, destName), nil
}

func (c *CLICmd) transcode(data []byte, from string) ([]byte, error) {
	if c.Channels == 0 {
		switch {
		case from == formatQOI && c.isQOITarget():
			return c.rewrapQOI(data)
		case from == imgconv.NormalizeFormat(c.To):
			return data, nil
		}
	}

	raster, colorspace, err := decodeSource(data, from)
	if err != nil {
		return nil, err
	}

	if c.Channels != 0 {
		if raster, err = raster.WithChannels(uint8(c.Channels)); err != nil {
			return nil, err
		}
	}

	if !c.isQOITarget() {
		return imgconv.EncodeFormatWithOptions(raster, c.To, &imgconv.EncodeOptions{JPEGQuality: c.Quality})
	}

	if c.Colorspace >= 0 {
		colorspace = uint8(c.Colorspace)
	}

	stream, err := qoi.EncodePixels(qoi.Descriptor{
		Width:      uint32(raster.Width),
		Height:     uint32(raster.Height),
		Channels:   raster.Channels,
		Colorspace: colorspace,
	}, raster.Pix)
	if err != nil {
		return nil, err
	}

	return qoiz.Wrap(stream, qoiz.CodecForName(c.To))
}

// rewrapQOI changes the compression or colorspace byte of a qoi stream
// without decoding the pixels.
func (c *CLICmd) rewrapQOI(data []byte) ([]byte, error) {
	stream, codec, err := qoiz.Unwrap(data)
	if err != nil {
		return nil, err
	}

	desc, err := qoi.UnpackHeader(stream)
	if err != nil {
		return nil, err
	}

	target := qoiz.CodecForName(c.To)
	patch := c.Colorspace >= 0 && uint8(c.Colorspace) != desc.Colorspace

	if codec == target && !patch {
		return data, nil
	}

	if patch {
		desc.Colorspace = uint8(c.Colorspace)
		h := qoi.PackHeader(desc)
		stream = append(h[:], stream[len(h):]...)
	}

	return qoiz.Wrap(stream, target)
}

func decodeSource(data []byte, from string) (imgconv.Raster, uint8, error) {
	if from != formatQOI {
		raster, _, err := imgconv.DecodeFormat(data)
		return raster, qoi.ColorspaceSRGB, err
	}

	stream, _, err := qoiz.Unwrap(data)
	if err != nil {
		return imgconv.Raster{}, 0, err
	}

	desc, pix, err := qoi.DecodePixels(stream)
	if err != nil {
		return imgconv.Raster{}, 0, err
	}

	return imgconv.Raster{
		Width:    int(desc.Width),
		Height:   int(desc.Height),
		Channels: desc.Channels,
		Pix:      pix,
	}, desc.Colorspace, nil
}

// save writes data to a temporary file in destDir and moves it into place.
// Without overwrite the temp file is hard linked to dest, which fails when
// another writer got there first.
func save(data []byte, destDir, destName string, overwrite bool) (err error) {
	dest := filepath.Join(destDir, destName)

	if !overwrite {
		if _, statErr := os.Stat(dest); statErr == nil {
			return fmt.Errorf("destination file already exists: %q", dest)
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return fmt.Errorf("cannot stat destination file %q: %w", dest, statErr)
		}
	}

	outFile, err := os.CreateTemp(destDir, "."+destName+".*")
	if err != nil {
		return fmt.Errorf("could not create destination file %q: %w", destName, err)
	}
	defer func() {
		if err != nil {
			_ = outFile.Close()
			_ = os.Remove(outFile.Name())
		}
	}()

	if _, err = outFile.Write(data); err != nil {
		return fmt.Errorf("could not write destination file %q: %w", destName, err)
	}

	if err = outFile.Chmod(0o644); err != nil {
		return fmt.Errorf("could not set mode of destination file %q: %w", destName, err)
	}

	if err = outFile.Sync(); err != nil {
		return fmt.Errorf("could not flush destination file %q: %w", destName, err)
	}

	if err = outFile.Close(); err != nil {
		return fmt.Errorf("could not close destination file %q: %w", destName, err)
	}

	if overwrite {
		if err = os.Rename(outFile.Name(), dest); err != nil {
			return fmt.Errorf("could not rename destination file %q: %w", destName, err)
		}
		return nil
	}

	if err = os.Link(outFile.Name(), dest); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("destination file already exists: %q", dest)
		}
		return fmt.Errorf("could not link destination file %q: %w", destName, err)
	}

	if rmErr := os.Remove(outFile.Name()); rmErr != nil {
		slog.Warn("could not remove temporary file", "name", outFile.Name(), "error", rmErr)
	}

	return nil
}
