package riingtrio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	speed := 50
	return &Config{
		Ports: map[string]PortConfig{
			"1": {Speed: &speed, Effect: "spectrum", EffectSpeed: "fast"},
		},
	}
}

func TestConfigDefaults(t *testing.T) {
	c := validConfig()
	c.Normalize()

	assert.Equal(t, defaultIntervalSeconds, c.Daemon.IntervalSeconds)
	assert.True(t, c.Daemon.SpeedOnce())

	port := c.Ports["1"]
	assert.Equal(t, defaultLEDCount, port.LEDCount)
	require.NotNil(t, port.Brightness)
	assert.Equal(t, 1.0, *port.Brightness)

	assert.NoError(t, c.Validate())
}

func TestConfigRejectsIntervalAtOrAboveWatchdog(t *testing.T) {
	for _, seconds := range []int{7, 8, 60} {
		c := validConfig()
		c.Normalize()
		c.Daemon.IntervalSeconds = seconds

		err := c.Validate()
		require.Error(t, err, "interval %ds", seconds)
		assert.True(t, IsConfigError(err))
	}

	c := validConfig()
	c.Normalize()
	c.Daemon.IntervalSeconds = 6
	assert.NoError(t, c.Validate())
}

func TestConfigRejectsInvalidPort(t *testing.T) {
	for _, key := range []string{"0", "6", "abc"} {
		c := validConfig()
		c.Ports[key] = PortConfig{Color: "red"}
		c.Normalize()

		err := c.Validate()
		require.Error(t, err, "port %q", key)
		assert.True(t, IsConfigError(err))
	}
}

func TestConfigRejectsBadLEDCount(t *testing.T) {
	for _, count := range []int{-1, 39, 100} {
		c := validConfig()
		port := c.Ports["1"]
		port.LEDCount = count
		c.Ports["1"] = port
		c.Normalize()

		assert.Error(t, c.Validate(), "led count %d", count)
	}
}

func TestConfigRejectsBadBrightness(t *testing.T) {
	brightness := 1.5
	c := validConfig()
	port := c.Ports["1"]
	port.Brightness = &brightness
	c.Ports["1"] = port
	c.Normalize()

	assert.Error(t, c.Validate())
}

func TestConfigRejectsUnknownEffect(t *testing.T) {
	c := validConfig()
	c.Ports["2"] = PortConfig{Effect: "lava-lamp"}
	c.Normalize()

	assert.Error(t, c.Validate())
}

func TestConfigRejectsUnsortedOrDuplicateZones(t *testing.T) {
	cases := [][]ZoneConfig{
		{{MinTemp: 40, Speed: 60}, {MinTemp: 40, Speed: 80}},
		{{MinTemp: 55, Speed: 80}, {MinTemp: 40, Speed: 60}},
	}
	for i, zones := range cases {
		c := validConfig()
		c.Ports["2"] = PortConfig{Effect: "pulse", Sensor: "cpu", Zones: zones}
		c.Normalize()

		err := c.Validate()
		require.Error(t, err, "case %d", i)
		assert.True(t, IsConfigError(err))
	}
}

func TestConfigRequiresSensorForZones(t *testing.T) {
	c := validConfig()
	c.Ports["2"] = PortConfig{Effect: "pulse", Zones: []ZoneConfig{{MinTemp: 0, Speed: 40}}}
	c.Normalize()

	assert.Error(t, c.Validate())
}

func TestBuildEffectDefaults(t *testing.T) {
	// Color only means static in that color.
	effect, err := PortConfig{Color: "red"}.buildEffect()
	require.NoError(t, err)
	assert.Equal(t, EffectStatic, effect.Kind)

	// Flow without colors falls back to the red/green/blue palette.
	effect, err = PortConfig{Effect: "flow"}.buildEffect()
	require.NoError(t, err)
	assert.Len(t, effect.Palette, 3)

	// Breathing is an alias for pulse.
	effect, err = PortConfig{Effect: "breathing", EffectSpeed: "slow"}.buildEffect()
	require.NoError(t, err)
	assert.Equal(t, EffectPulse, effect.Kind)
	assert.Equal(t, SpeedSlow, effect.Speed)
}
