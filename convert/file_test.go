package convert

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LukiDS/qoiconv/imgconv"
	"github.com/LukiDS/qoiconv/parallel"
	"github.com/LukiDS/qoiconv/qoi"
	"github.com/LukiDS/qoiconv/qoiz"
)

func testRaster(channels uint8) imgconv.Raster {
	r := imgconv.Raster{Width: 6, Height: 5, Channels: channels}
	r.Pix = make([]byte, r.Width*r.Height*int(channels))
	for i := range r.Pix {
		r.Pix[i] = byte(i * 13)
		if channels == 4 && i%4 == 3 {
			r.Pix[i] = byte(128 + i)
		}
	}
	return r
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writePNG(t *testing.T, dir, name string, r imgconv.Raster) string {
	t.Helper()

	data, err := imgconv.EncodeFormat(r, "png")
	if err != nil {
		t.Fatal(err)
	}
	return writeFile(t, dir, name, data)
}

func newCmd(to string, files ...string) *CLICmd {
	return &CLICmd{Files: files, To: to, Colorspace: -1, Quality: 90}
}

func readQOI(t *testing.T, path string) (qoi.Descriptor, []byte, qoiz.Codec) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	stream, codec, err := qoiz.Unwrap(data)
	if err != nil {
		t.Fatal(err)
	}

	desc, pix, err := qoi.DecodePixels(stream)
	if err != nil {
		t.Fatal(err)
	}
	return desc, pix, codec
}

func TestStripName(t *testing.T) {
	tests := map[string]string{
		"photo.png":      "photo",
		"photo.JPEG":     "photo",
		"photo.jpg":      "photo",
		"photo.qoi":      "photo",
		"photo.qoi.zst":  "photo",
		"photo.QOI.LZ4":  "photo",
		"photo.tif":      "photo",
		"photo.webp":     "photo",
		"archive.tar.gz": "archive.tar.gz",
		"noext":          "noext",
		".png":           ".png",
	}

	for name, expected := range tests {
		if actual := stripName(name); actual != expected {
			t.Errorf("stripName(%q) = %q, expected %q", name, actual, expected)
		}
	}
}

func TestSourceFormat(t *testing.T) {
	r := testRaster(3)

	png, err := imgconv.EncodeFormat(r, "png")
	if err != nil {
		t.Fatal(err)
	}

	stream, err := qoi.EncodePixels(qoi.Descriptor{Width: 6, Height: 5, Channels: 3}, r.Pix)
	if err != nil {
		t.Fatal(err)
	}

	lz4Stream, err := qoiz.Wrap(stream, qoiz.LZ4)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		data   []byte
		expect string
	}{
		{name: "png", data: png, expect: "png"},
		{name: "qoi", data: stream, expect: formatQOI},
		{name: "qoi.lz4", data: lz4Stream, expect: formatQOI},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual, err := sourceFormat(test.data, "file."+test.name)
			if err != nil {
				t.Fatal(err)
			}
			if actual != test.expect {
				t.Fatalf("format = %q, expected %q", actual, test.expect)
			}
		})
	}

	if _, err := sourceFormat([]byte("plain text"), "notes.png"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestRunPNGToQOI(t *testing.T) {
	for _, channels := range []uint8{3, 4} {
		dir := t.TempDir()
		r := testRaster(channels)
		src := writePNG(t, dir, "image.png", r)

		if err := newCmd("qoi", src).Run(parallel.Start(1)); err != nil {
			t.Fatal(err)
		}

		desc, pix, codec := readQOI(t, filepath.Join(dir, "image.qoi"))
		if codec != qoiz.None {
			t.Fatalf("codec = %q, expected none", codec)
		}

		expected := qoi.Descriptor{Width: 6, Height: 5, Channels: channels, Colorspace: qoi.ColorspaceSRGB}
		if desc != expected {
			t.Fatalf("descriptor = %+v, expected %+v", desc, expected)
		}

		if !bytes.Equal(pix, r.Pix) {
			t.Fatalf("channels=%d: pixels differ", channels)
		}
	}
}

func TestRunQOIRoundTrip(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	r := testRaster(4)
	src := writePNG(t, dir, "image.png", r)

	if err := newCmd("qoi.zst", src).Run(parallel.Start(2)); err != nil {
		t.Fatal(err)
	}

	zst := filepath.Join(dir, "image.qoi.zst")
	_, pix, codec := readQOI(t, zst)
	if codec != qoiz.Zstd {
		t.Fatalf("codec = %q, expected zstd", codec)
	}
	if !bytes.Equal(pix, r.Pix) {
		t.Fatal("pixels differ after png -> qoi.zst")
	}

	cmd := newCmd("png", zst)
	cmd.Dest = out
	if err := cmd.Run(parallel.Start(1)); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(out, "image.png"))
	if err != nil {
		t.Fatal(err)
	}

	back, format, err := imgconv.DecodeFormat(data)
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" || back.Channels != 4 || !bytes.Equal(back.Pix, r.Pix) {
		t.Fatal("pixels differ after qoi.zst -> png")
	}
}

func TestRunRewrapQOI(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	r := testRaster(3)

	stream, err := qoi.EncodePixels(qoi.Descriptor{Width: 6, Height: 5, Channels: 3}, r.Pix)
	if err != nil {
		t.Fatal(err)
	}
	src := writeFile(t, dir, "image.qoi", stream)

	cmd := newCmd("qoi.lz4", src)
	cmd.Dest = out
	cmd.Colorspace = int(qoi.ColorspaceLinear)
	if err := cmd.Run(parallel.Start(1)); err != nil {
		t.Fatal(err)
	}

	desc, pix, codec := readQOI(t, filepath.Join(out, "image.qoi.lz4"))
	if codec != qoiz.LZ4 {
		t.Fatalf("codec = %q, expected lz4", codec)
	}
	if desc.Colorspace != qoi.ColorspaceLinear {
		t.Fatalf("colorspace = %d, expected %d", desc.Colorspace, qoi.ColorspaceLinear)
	}
	if !bytes.Equal(pix, r.Pix) {
		t.Fatal("pixels differ after rewrap")
	}

	cmd = newCmd("qoi", src)
	cmd.Dest = out
	if err := cmd.Run(parallel.Start(1)); err != nil {
		t.Fatal(err)
	}

	copied, err := os.ReadFile(filepath.Join(out, "image.qoi"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(copied, stream) {
		t.Fatal("same format conversion should copy the file unchanged")
	}
}

func TestRunChannels(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "image.png", testRaster(3))

	cmd := newCmd("qoi", src)
	cmd.Channels = 4
	if err := cmd.Run(parallel.Start(1)); err != nil {
		t.Fatal(err)
	}

	desc, pix, _ := readQOI(t, filepath.Join(dir, "image.qoi"))
	if desc.Channels != 4 {
		t.Fatalf("channels = %d, expected 4", desc.Channels)
	}
	for i := 3; i < len(pix); i += 4 {
		if pix[i] != 0xff {
			t.Fatalf("alpha at %d = %d, expected 255", i, pix[i])
		}
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "image.png", testRaster(3))
	writeFile(t, dir, "image.qoi", []byte("existing"))
	text := writeFile(t, dir, "notes.png", []byte("plain text"))

	if err := newCmd("qoi", src).Run(parallel.Start(1)); err == nil {
		t.Fatal("expected an error for an existing destination")
	}

	existing, err := os.ReadFile(filepath.Join(dir, "image.qoi"))
	if err != nil {
		t.Fatal(err)
	}
	if string(existing) != "existing" {
		t.Fatal("existing destination was modified")
	}

	cmd := newCmd("qoi", src)
	cmd.Overwrite = true
	if err := cmd.Run(parallel.Start(1)); err != nil {
		t.Fatal(err)
	}

	if err := newCmd("qoi", text).Run(parallel.Start(1)); err == nil {
		t.Fatal("expected an error for an unknown file type")
	}

	if _, err := os.Stat(filepath.Join(dir, "notes.qoi")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no output expected for an unknown file type, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     CLICmd
		wantErr bool
	}{
		{name: "defaults", cmd: CLICmd{To: "qoi", Colorspace: -1, Quality: 90}},
		{name: "channels", cmd: CLICmd{To: "qoi", Channels: 2, Colorspace: -1, Quality: 90}, wantErr: true},
		{name: "colorspace", cmd: CLICmd{To: "qoi", Colorspace: 256, Quality: 90}, wantErr: true},
		{name: "quality", cmd: CLICmd{To: "jpeg", Colorspace: -1, Quality: 0}, wantErr: true},
		{name: "dest", cmd: CLICmd{To: "qoi", Dest: "out", Colorspace: -1, Quality: 90}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.cmd.Validate(nil)
			if (err != nil) != test.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, test.wantErr)
			}
			if test.cmd.Dest != "" && !filepath.IsAbs(test.cmd.Dest) {
				t.Fatalf("dest %q is not absolute", test.cmd.Dest)
			}
		})
	}
}

func TestRunCollidingNames(t *testing.T) {
	dir := t.TempDir()
	r := testRaster(3)
	pngSrc := writePNG(t, dir, "a.png", r)

	bmp, err := imgconv.EncodeFormat(r, "bmp")
	if err != nil {
		t.Fatal(err)
	}
	bmpSrc := writeFile(t, dir, "a.bmp", bmp)

	if err := newCmd("qoi", pngSrc, bmpSrc).Run(parallel.Start(4)); err == nil {
		t.Fatal("expected an error when two sources map to the same destination")
	}

	_, pix, _ := readQOI(t, filepath.Join(dir, "a.qoi"))
	if !bytes.Equal(pix, r.Pix) {
		t.Fatal("pixels differ in the surviving destination")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Fatalf("temporary file %q left behind", e.Name())
		}
	}
}
