package riingtrio

import (
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/diffficult/ttriingtrio-controller/device"
)

const (
	// RenderHz is the effect render cadence. Phase advances on every
	// render tick regardless of how often frames reach the device.
	RenderHz = 30

	// phasePeriod is the shared cycle length in phase units. Tier
	// increments divide it evenly, so a full cycle takes 8/4/2/1 seconds
	// for Slow/Normal/Fast/Extreme at 30 Hz.
	phasePeriod = 240
)

type Speed int

const (
	SpeedSlow Speed = iota
	SpeedNormal
	SpeedFast
	SpeedExtreme
)

// increment is the phase advance per render tick. Strictly increasing
// across tiers.
func (s Speed) increment() uint32 {
	switch s {
	case SpeedSlow:
		return 1
	case SpeedFast:
		return 4
	case SpeedExtreme:
		return 8
	default:
		return 2
	}
}

func (s Speed) String() string {
	switch s {
	case SpeedSlow:
		return "slow"
	case SpeedFast:
		return "fast"
	case SpeedExtreme:
		return "extreme"
	default:
		return "normal"
	}
}

func ParseSpeed(name string) (Speed, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "normal":
		return SpeedNormal, true
	case "slow":
		return SpeedSlow, true
	case "fast":
		return SpeedFast, true
	case "extreme":
		return SpeedExtreme, true
	}
	return SpeedNormal, false
}

type EffectKind int

const (
	EffectStatic EffectKind = iota
	EffectSpectrum
	EffectWave
	EffectPulse
	EffectBlink
	EffectFlow
	EffectRipple
)

func (k EffectKind) String() string {
	switch k {
	case EffectStatic:
		return "static"
	case EffectSpectrum:
		return "spectrum"
	case EffectWave:
		return "wave"
	case EffectPulse:
		return "pulse"
	case EffectBlink:
		return "blink"
	case EffectFlow:
		return "flow"
	case EffectRipple:
		return "ripple"
	}
	return "unknown"
}

func ParseEffectKind(name string) (EffectKind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "static":
		return EffectStatic, true
	case "spectrum", "rainbow":
		return EffectSpectrum, true
	case "wave":
		return EffectWave, true
	case "pulse", "breathing":
		return EffectPulse, true
	case "blink":
		return EffectBlink, true
	case "flow":
		return EffectFlow, true
	case "ripple":
		return EffectRipple, true
	}
	return EffectStatic, false
}

// Effect is one port's lighting state: a closed set of kinds plus the
// parameters and phase accumulator the renderer needs. Each port owns
// its own Effect; nothing here is shared.
type Effect struct {
	Kind       EffectKind
	Color      device.Color
	Palette    []device.Color
	Speed      Speed
	Brightness float64

	phase uint32
}

// Advance moves the phase one render tick forward, wrapping at the
// period so long-running daemons never overflow.
func (e *Effect) Advance() {
	e.phase = (e.phase + e.Speed.increment()) % phasePeriod
}

// Phase returns the current phase accumulator value.
func (e *Effect) Phase() uint32 {
	return e.phase
}

// Animated reports whether the effect changes between ticks.
func (e *Effect) Animated() bool {
	return e.Kind != EffectStatic
}

// Render produces one frame of ledCount colors. Pure in (state, phase):
// identical inputs always produce identical frames.
func (e *Effect) Render(ledCount int) []device.Color {
	return e.RenderBase(e.Color, ledCount)
}

// RenderBase renders with base substituted for the effect's own color,
// used for temperature zone color overrides.
func (e *Effect) RenderBase(base device.Color, ledCount int) []device.Color {
	frame := make([]device.Color, ledCount)
	t := float64(e.phase) / phasePeriod

	switch e.Kind {
	case EffectSpectrum:
		// Traveling rainbow: hue advances with phase, offset per LED
		// across the full wheel.
		for i := range frame {
			hue := math.Mod(t*360+float64(i)/float64(ledCount)*360, 360)
			frame[i] = fromHSV(hue, 1, e.Brightness)
		}

	case EffectWave:
		for i := range frame {
			pos := float64(i) / float64(ledCount)
			intensity := (math.Sin(2*math.Pi*(t+pos))*0.5 + 0.5) * e.Brightness
			frame[i] = base.Scale(intensity)
		}

	case EffectPulse:
		intensity := (math.Sin(2*math.Pi*t)*0.5 + 0.5) * e.Brightness
		fill(frame, base.Scale(intensity))

	case EffectBlink:
		if e.phase < phasePeriod/2 {
			fill(frame, base.Scale(e.Brightness))
		} else {
			fill(frame, device.Off)
		}

	case EffectFlow:
		palette := e.Palette
		if len(palette) == 0 {
			palette = []device.Color{base}
		}
		for i := range frame {
			pos := math.Mod(t+float64(i)/float64(ledCount), 1)
			f := pos * float64(len(palette))
			idx := int(f) % len(palette)
			next := (idx + 1) % len(palette)
			frame[i] = palette[idx].Lerp(palette[next], f-math.Floor(f)).Scale(e.Brightness)
		}

	case EffectRipple:
		// LED index as 1-D radius from the strip center.
		for i := range frame {
			pos := float64(i) / float64(ledCount)
			distance := math.Abs(pos-0.5) * 2
			wave := math.Sin((t - distance) * 2 * math.Pi)
			frame[i] = base.Scale((wave*0.5 + 0.5) * e.Brightness)
		}

	default:
		fill(frame, base.Scale(e.Brightness))
	}
	return frame
}

func fill(frame []device.Color, c device.Color) {
	for i := range frame {
		frame[i] = c
	}
}

func fromHSV(h, s, v float64) device.Color {
	r, g, b := colorful.Hsv(h, s, v).Clamped().RGB255()
	return device.Color{R: r, G: g, B: b}
}
