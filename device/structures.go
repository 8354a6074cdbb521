package device

import "strings"

// Color is a single LED color in conventional R,G,B order. The wire
// encoding is GRB; use GRB() when building payloads.
type Color struct {
	R, G, B uint8
}

// GRB returns the color in the byte order the controller expects.
func (c Color) GRB() [3]byte {
	return [3]byte{c.G, c.R, c.B}
}

// Scale multiplies each channel by brightness, clamped to [0, 1].
func (c Color) Scale(brightness float64) Color {
	if brightness < 0 {
		brightness = 0
	}
	if brightness > 1 {
		brightness = 1
	}
	return Color{
		R: uint8(float64(c.R) * brightness),
		G: uint8(float64(c.G) * brightness),
		B: uint8(float64(c.B) * brightness),
	}
}

// Lerp linearly interpolates between c and other.
func (c Color) Lerp(other Color, t float64) Color {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return Color{
		R: uint8(float64(c.R)*(1-t) + float64(other.R)*t),
		G: uint8(float64(c.G)*(1-t) + float64(other.G)*t),
		B: uint8(float64(c.B)*(1-t) + float64(other.B)*t),
	}
}

var (
	Off     = Color{}
	White   = Color{255, 255, 255}
	Red     = Color{255, 0, 0}
	Green   = Color{0, 255, 0}
	Blue    = Color{0, 0, 255}
	Cyan    = Color{0, 255, 255}
	Magenta = Color{255, 0, 255}
	Yellow  = Color{255, 255, 0}
	Orange  = Color{255, 165, 0}
	Purple  = Color{128, 0, 128}
	Pink    = Color{255, 192, 203}
	Sky     = Color{135, 206, 235}
)

var namedColors = map[string]Color{
	"off":     Off,
	"black":   Off,
	"white":   White,
	"red":     Red,
	"green":   Green,
	"lime":    Green,
	"blue":    Blue,
	"cyan":    Cyan,
	"magenta": Magenta,
	"yellow":  Yellow,
	"orange":  Orange,
	"purple":  Purple,
	"pink":    Pink,
	"sky":     Sky,
}

// ParseColor resolves a color name from configuration.
func ParseColor(name string) (Color, bool) {
	c, ok := namedColors[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// PortStatus is the fan state reported by the controller for one port.
type PortStatus struct {
	Port  byte
	Speed byte
	RPM   uint16
}
