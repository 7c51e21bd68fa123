package imgconv

import (
	"image"

	"golang.org/x/image/draw"
)

// ToNRGBA converts any image m to an *image.NRGBA image.
// Any Image may be converted, but images that are not image.NRGBA might be converted lossily.
func ToNRGBA(m image.Image) *image.NRGBA {
	if img, ok := m.(*image.NRGBA); ok {
		return img
	}

	img := image.NewNRGBA(m.Bounds())
	draw.Draw(img, img.Bounds(), m, m.Bounds().Min, draw.Src)

	return img
}

// ToRGBA converts any image m to an *image.RGBA image.
// Any Image may be converted, but images that are not image.RGBA might be converted lossily.
func ToRGBA(m image.Image) *image.RGBA {
	if img, ok := m.(*image.RGBA); ok {
		return img
	}

	img := image.NewRGBA(m.Bounds())
	draw.Draw(img, img.Bounds(), m, m.Bounds().Min, draw.Src)

	return img
}

// OpaqueChannels returns 3 for images that report themselves fully opaque
// and 4 otherwise.
func OpaqueChannels(m image.Image) uint8 {
	if o, ok := m.(interface{ Opaque() bool }); ok && o.Opaque() {
		return 3
	}

	return 4
}
