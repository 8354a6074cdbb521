package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorGRBOrder(t *testing.T) {
	assert.Equal(t, [3]byte{0x00, 0xFF, 0x00}, Color{R: 255}.GRB())
	assert.Equal(t, [3]byte{0xFF, 0x00, 0x00}, Color{G: 255}.GRB())
	assert.Equal(t, [3]byte{0x00, 0x00, 0xFF}, Color{B: 255}.GRB())
	assert.Equal(t, [3]byte{0x20, 0x10, 0x30}, Color{0x10, 0x20, 0x30}.GRB())
}

func TestColorScale(t *testing.T) {
	assert.Equal(t, Color{127, 127, 127}, White.Scale(0.5))
	assert.Equal(t, Off, White.Scale(0))
	assert.Equal(t, White, White.Scale(1.5), "brightness clamps at 1")
	assert.Equal(t, Off, White.Scale(-1), "brightness clamps at 0")
}

func TestColorLerp(t *testing.T) {
	assert.Equal(t, Red, Red.Lerp(Blue, 0))
	assert.Equal(t, Blue, Red.Lerp(Blue, 1))
	assert.Equal(t, Color{127, 0, 127}, Red.Lerp(Blue, 0.5))
}

func TestParseColor(t *testing.T) {
	c, ok := ParseColor("White")
	assert.True(t, ok)
	assert.Equal(t, White, c)

	c, ok = ParseColor(" black ")
	assert.True(t, ok)
	assert.Equal(t, Off, c)

	_, ok = ParseColor("mauve")
	assert.False(t, ok)
}
