package riingtrio

import "github.com/diffficult/ttriingtrio-controller/device"

// Zone maps temperatures at or above MinTemp to a fan speed and an
// optional base color override for the port's effect. A port's zone
// table is sorted ascending by MinTemp with unique bounds.
type Zone struct {
	MinTemp float64
	Speed   byte
	Color   *device.Color
}

// mapZone selects the zone with the greatest lower bound at or below
// temp (last match wins). Readings below every bound use the lowest
// zone.
func mapZone(zones []Zone, temp float64) Zone {
	selected := zones[0]
	for _, z := range zones {
		if z.MinTemp <= temp {
			selected = z
		}
	}
	return selected
}
