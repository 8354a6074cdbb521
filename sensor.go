package riingtrio

import (
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrSensorUnavailable marks a failed temperature read. Non-fatal: the
// scheduler holds the last known reading and keeps going.
var ErrSensorUnavailable = errors.New("sensor unavailable")

// Sensor provides a temperature reading in degrees Celsius.
type Sensor interface {
	Read() (float64, error)
}

// LMSensors reads temperatures by running lm-sensors' `sensors` binary.
// Spec is either a preset (cpu, gpu, gpu-nvidia, nvme, hdd, ssd) or an
// explicit "adapter:field" path into the sensors output.
type LMSensors struct {
	Spec string
}

var presetPatterns = map[string][]string{
	"cpu":  {"Tctl:", "Package id 0:", "CPU Temperature:", "coretemp"},
	"gpu":  {"edge:", "GPU:", "amdgpu", "nvidia"},
	"nvme": {"Composite:", "nvme"},
	"hdd":  {"temp1:", "drivetemp"},
	"ssd":  {"temp1:", "drivetemp"},
}

// Matches "+48.6°C" and "48.6 C".
var tempPattern = regexp.MustCompile(`[+-]?(\d+\.?\d*)\s*°?C`)

func (s LMSensors) Read() (float64, error) {
	spec := strings.TrimSpace(s.Spec)
	if strings.EqualFold(spec, "gpu-nvidia") {
		return readNvidiaTemp()
	}
	out, err := exec.Command("sensors").Output()
	if err != nil {
		return 0, errors.Wrapf(ErrSensorUnavailable, "running sensors: %v", err)
	}
	return parseSensorsOutput(string(out), spec)
}

func parseSensorsOutput(text, spec string) (float64, error) {
	if patterns, ok := presetPatterns[strings.ToLower(spec)]; ok {
		for _, pattern := range patterns {
			if temp, ok := firstTempMatching(text, pattern); ok {
				return temp, nil
			}
		}
		return 0, errors.Wrapf(ErrSensorUnavailable, "no reading for preset %q", spec)
	}
	return explicitTemp(text, spec)
}

func firstTempMatching(text, pattern string) (float64, bool) {
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, pattern) {
			if temp, ok := parseTempLine(line); ok {
				return temp, true
			}
		}
	}
	return 0, false
}

func parseTempLine(line string) (float64, bool) {
	m := tempPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	temp, err := strconv.ParseFloat(m[1], 64)
	return temp, err == nil
}

// explicitTemp resolves an "adapter:field" (or "adapter.field") path:
// find the adapter section, then the first matching field line in it.
func explicitTemp(text, spec string) (float64, error) {
	sep := ":"
	if !strings.Contains(spec, ":") {
		sep = "."
	}
	parts := strings.SplitN(spec, sep, 2)
	if len(parts) != 2 {
		return 0, errors.Wrapf(ErrSensorUnavailable, "invalid sensor spec %q, expected adapter:field", spec)
	}
	adapter, field := parts[0], parts[1]

	inAdapter := false
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			inAdapter = false
			continue
		}
		if strings.Contains(line, adapter) && !strings.Contains(line, "Adapter:") {
			inAdapter = true
			continue
		}
		if inAdapter && strings.Contains(line, field) {
			if temp, ok := parseTempLine(line); ok {
				return temp, nil
			}
		}
	}
	return 0, errors.Wrapf(ErrSensorUnavailable, "sensor %q not found", spec)
}

func readNvidiaTemp() (float64, error) {
	out, err := exec.Command("nvidia-smi", "-q", "-d", "TEMPERATURE").Output()
	if err != nil {
		return 0, errors.Wrapf(ErrSensorUnavailable, "running nvidia-smi: %v", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "GPU Current Temp") {
			continue
		}
		fields := strings.SplitN(line, ":", 2)
		if len(fields) != 2 {
			continue
		}
		value := strings.Fields(fields[1])
		if len(value) == 0 {
			continue
		}
		if temp, err := strconv.ParseFloat(value[0], 64); err == nil {
			return temp, nil
		}
	}
	return 0, errors.Wrap(ErrSensorUnavailable, "no GPU Current Temp in nvidia-smi output")
}
