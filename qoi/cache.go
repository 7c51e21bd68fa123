package qoi

import "image/color"

// colorCache holds the most recently seen colors, one per hash slot.
// Each encode or decode call owns its own cache.
type colorCache [qoiMaxBufferSize]color.NRGBA

func newColorCache() colorCache {
	var c colorCache
	for i := range c {
		c[i] = color.NRGBA{0, 0, 0, 255}
	}
	return c
}

// hash wraps in uint8; 64 divides 256 so the slot is unchanged.
func hash(c color.NRGBA) uint8 {
	return (3*c.R + 5*c.G + 7*c.B + 11*c.A) % qoiMaxBufferSize
}

func (c *colorCache) lookup(index uint8) color.NRGBA {
	return c[index&mask6]
}

// store evicts whatever occupied the slot.
func (c *colorCache) store(index uint8, px color.NRGBA) {
	c[index&mask6] = px
}
