package riingtrio

import (
	"fmt"
	"strconv"
	"time"

	"github.com/diffficult/ttriingtrio-controller/device"
)

// WatchdogTimeout is how long the controller tolerates silence before
// reverting to its factory default state. The daemon interval must stay
// below it.
const WatchdogTimeout = 7 * time.Second

const (
	defaultLEDCount        = 30
	defaultIntervalSeconds = 5
)

// ConfigError is a fatal configuration problem; there is no valid state
// to run the daemon with.
type ConfigError string

func (e ConfigError) Error() string {
	return "config: " + string(e)
}

func configErrorf(format string, args ...interface{}) ConfigError {
	return ConfigError(fmt.Sprintf(format, args...))
}

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	_, ok := err.(ConfigError)
	return ok
}

// Config keys ports by decimal string because TOML and YAML table keys
// decode as strings.
type Config struct {
	Ports  map[string]PortConfig `mapstructure:"ports"`
	Daemon DaemonConfig          `mapstructure:"daemon"`
}

type PortConfig struct {
	Speed        *int         `mapstructure:"speed"`
	Color        string       `mapstructure:"color"`
	Effect       string       `mapstructure:"effect"`
	EffectSpeed  string       `mapstructure:"effect_speed"`
	FlowColors   []string     `mapstructure:"flow_colors"`
	Brightness   *float64     `mapstructure:"brightness"`
	LEDCount     int          `mapstructure:"led_count"`
	ReapplySpeed bool         `mapstructure:"reapply_speed"`
	Sensor       string       `mapstructure:"sensor"`
	Zones        []ZoneConfig `mapstructure:"zones"`
}

type ZoneConfig struct {
	MinTemp float64 `mapstructure:"min_temp"`
	Speed   int     `mapstructure:"speed"`
	Color   string  `mapstructure:"color"`
}

type DaemonConfig struct {
	IntervalSeconds    int   `mapstructure:"interval_seconds"`
	SpeedOnceAtStartup *bool `mapstructure:"speed_once_at_startup"`
}

// Interval is the device-write cadence.
func (d DaemonConfig) Interval() time.Duration {
	return time.Duration(d.IntervalSeconds) * time.Second
}

// SpeedOnce defaults to true: fan speed persists on the device, so
// re-sending it every interval is unnecessary unless asked for.
func (d DaemonConfig) SpeedOnce() bool {
	return d.SpeedOnceAtStartup == nil || *d.SpeedOnceAtStartup
}

// Normalize fills in defaults for unset fields.
func (c *Config) Normalize() {
	if c.Daemon.IntervalSeconds == 0 {
		c.Daemon.IntervalSeconds = defaultIntervalSeconds
	}
	for key, port := range c.Ports {
		if port.LEDCount == 0 {
			port.LEDCount = defaultLEDCount
		}
		if port.Brightness == nil {
			brightness := 1.0
			port.Brightness = &brightness
		}
		c.Ports[key] = port
	}
}

// Validate checks the whole configuration. Call Normalize first.
func (c *Config) Validate() error {
	if c.Daemon.IntervalSeconds < 1 {
		return configErrorf("daemon interval must be at least 1s")
	}
	if c.Daemon.Interval() >= WatchdogTimeout {
		return configErrorf("daemon interval %s must be below the %s hardware watchdog",
			c.Daemon.Interval(), WatchdogTimeout)
	}
	if len(c.Ports) == 0 {
		return configErrorf("no ports configured")
	}
	for key, port := range c.Ports {
		id, err := strconv.Atoi(key)
		if err != nil {
			return configErrorf("invalid port number %q", key)
		}
		if id < device.MinPort || id > device.MaxPort {
			return configErrorf("invalid port %d, must be %d-%d", id, device.MinPort, device.MaxPort)
		}
		if err := port.validate(id); err != nil {
			return err
		}
	}
	return nil
}

func (p PortConfig) validate(id int) error {
	if p.LEDCount < 1 || p.LEDCount > device.MaxLEDCount {
		return configErrorf("port %d: led_count %d must be 1-%d", id, p.LEDCount, device.MaxLEDCount)
	}
	if p.Brightness != nil && (*p.Brightness < 0 || *p.Brightness > 1) {
		return configErrorf("port %d: brightness %.2f must be 0.0-1.0", id, *p.Brightness)
	}
	if p.Speed != nil && (*p.Speed < 0 || *p.Speed > 100) {
		return configErrorf("port %d: speed %d must be 0-100", id, *p.Speed)
	}
	if _, err := p.buildEffect(); err != nil {
		return configErrorf("port %d: %v", id, err)
	}
	if len(p.Zones) > 0 {
		if p.Sensor == "" {
			return configErrorf("port %d: zones require a sensor", id)
		}
		if _, err := p.buildZones(); err != nil {
			return configErrorf("port %d: %v", id, err)
		}
	}
	return nil
}

// buildEffect resolves the configured effect, defaulting sensibly the
// way the hardware's own software does: no effect plus a color means
// static, nothing at all means static white.
func (p PortConfig) buildEffect() (*Effect, error) {
	speed, ok := ParseSpeed(p.EffectSpeed)
	if !ok {
		return nil, fmt.Errorf("unknown effect speed %q", p.EffectSpeed)
	}

	base := device.White
	if p.Color != "" {
		c, ok := device.ParseColor(p.Color)
		if !ok {
			return nil, fmt.Errorf("unknown color %q", p.Color)
		}
		base = c
	}

	kind := EffectStatic
	if p.Effect != "" {
		k, ok := ParseEffectKind(p.Effect)
		if !ok {
			return nil, fmt.Errorf("unknown effect %q", p.Effect)
		}
		kind = k
	}

	effect := &Effect{
		Kind:       kind,
		Color:      base,
		Speed:      speed,
		Brightness: 1,
	}
	if p.Brightness != nil {
		effect.Brightness = *p.Brightness
	}

	if kind == EffectFlow {
		palette := []device.Color{device.Red, device.Green, device.Blue}
		if len(p.FlowColors) > 0 {
			palette = palette[:0]
			for _, name := range p.FlowColors {
				c, ok := device.ParseColor(name)
				if !ok {
					return nil, fmt.Errorf("unknown flow color %q", name)
				}
				palette = append(palette, c)
			}
		}
		effect.Palette = palette
	}
	return effect, nil
}

// buildZones resolves and checks the zone table: ascending lower bounds,
// no duplicates, speeds in range.
func (p PortConfig) buildZones() ([]Zone, error) {
	zones := make([]Zone, 0, len(p.Zones))
	for i, zc := range p.Zones {
		if i > 0 && zc.MinTemp <= p.Zones[i-1].MinTemp {
			return nil, fmt.Errorf("zones must be sorted ascending with unique bounds, zone %d at %.1f follows %.1f",
				i, zc.MinTemp, p.Zones[i-1].MinTemp)
		}
		if zc.Speed < 0 || zc.Speed > 100 {
			return nil, fmt.Errorf("zone %d: speed %d must be 0-100", i, zc.Speed)
		}
		zone := Zone{MinTemp: zc.MinTemp, Speed: byte(zc.Speed)}
		if zc.Color != "" {
			c, ok := device.ParseColor(zc.Color)
			if !ok {
				return nil, fmt.Errorf("zone %d: unknown color %q", i, zc.Color)
			}
			zone.Color = &c
		}
		zones = append(zones, zone)
	}
	return zones, nil
}
