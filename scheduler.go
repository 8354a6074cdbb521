package riingtrio

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	tomb "gopkg.in/tomb.v2"

	"github.com/diffficult/ttriingtrio-controller/device"
)

const (
	renderInterval     = time.Second / RenderHz
	sensorReadInterval = 5 * time.Second

	// Consecutive sensor failures before a port that never produced a
	// reading starts showing the failure cue.
	sensorFailureLimit = 3
)

// Scheduler owns all per-port state and serializes every device command
// through a single loop; the controller handle is never used from two
// goroutines. A failed command on one port is logged and the loop moves
// on to the next port.
type Scheduler struct {
	controller device.Controller
	ports      []*portState
	interval   time.Duration
	speedOnce  bool

	t tomb.Tomb
}

// NewScheduler validates config and builds the per-port state. The
// interval check against the hardware watchdog happens here, at
// runtime, before any device traffic.
func NewScheduler(controller device.Controller, config *Config) (*Scheduler, error) {
	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{
		controller: controller,
		ports:      buildPortStates(config),
		interval:   config.Daemon.Interval(),
		speedOnce:  config.Daemon.SpeedOnce(),
	}, nil
}

// Start launches the daemon loop.
func (s *Scheduler) Start() {
	s.t.Go(s.loop)
}

// Stop cancels the loop and waits for the in-flight command to finish.
// Cancellation is cooperative: the loop checks at tick boundaries and
// SetRGB checks between chunks, never mid-write.
func (s *Scheduler) Stop() error {
	s.t.Kill(nil)
	return s.t.Wait()
}

// Wait blocks until the loop exits.
func (s *Scheduler) Wait() error {
	return s.t.Wait()
}

func (s *Scheduler) loop() error {
	ctx := s.t.Context(context.Background())

	if err := s.controller.Init(ctx); err != nil {
		return errors.Wrap(err, "controller init")
	}
	log.WithFields(log.Fields{
		"ports":    len(s.ports),
		"interval": s.interval,
	}).Info("scheduler starting")

	if s.speedOnce {
		s.applySpeeds(ctx)
	}

	render := time.NewTicker(renderInterval)
	defer render.Stop()
	refresh := time.NewTicker(s.interval)
	defer refresh.Stop()

	for {
		select {
		case <-s.t.Dying():
			log.Info("scheduler stopping")
			return nil
		case <-render.C:
			s.renderTick(ctx, time.Now())
		case <-refresh.C:
			s.refreshTick(ctx)
		}
	}
}

// renderTick advances every port's phase and writes frames for animated
// ports at the render cadence.
func (s *Scheduler) renderTick(ctx context.Context, now time.Time) {
	for _, p := range s.ports {
		if !s.t.Alive() {
			return
		}
		p.tick(now)
		if !p.animated() {
			continue
		}
		if err := s.controller.SetRGB(ctx, p.port, p.frame()); err != nil {
			logPortError(p.port, "set rgb", err)
		}
	}
}

// refreshTick is the watchdog-bound cadence: re-issue static frames so
// the controller never reverts to defaults, and re-apply speeds where
// configured or temperature-driven.
func (s *Scheduler) refreshTick(ctx context.Context) {
	for _, p := range s.ports {
		if !s.t.Alive() {
			return
		}
		if speed, ok := p.targetSpeed(); ok {
			if !s.speedOnce || p.reapplySpeed || len(p.zones) > 0 {
				if err := s.controller.SetSpeed(ctx, p.port, speed); err != nil {
					logPortError(p.port, "set speed", err)
				}
			}
		}
		if p.animated() {
			continue
		}
		if err := s.controller.SetRGB(ctx, p.port, p.frame()); err != nil {
			logPortError(p.port, "set rgb", err)
		}
	}
}

func (s *Scheduler) applySpeeds(ctx context.Context) {
	for _, p := range s.ports {
		speed, ok := p.targetSpeed()
		if !ok {
			continue
		}
		if err := s.controller.SetSpeed(ctx, p.port, speed); err != nil {
			logPortError(p.port, "set speed", err)
			continue
		}
		log.WithFields(log.Fields{
			"port":  p.port,
			"speed": speed,
		}).Info("fan speed set")
	}
}

func logPortError(port byte, command string, err error) {
	entry := log.WithFields(log.Fields{
		"port":    port,
		"command": command,
	})
	if perr, ok := errors.Cause(err).(*device.ProtocolError); ok {
		entry = entry.WithField("status", fmt.Sprintf("0x%02X", perr.Code))
	}
	entry.WithError(err).Error("command failed")
}

// portState is one port's exclusive slice of daemon state. Nothing here
// is shared across ports.
type portState struct {
	port         byte
	ledCount     int
	effect       *Effect
	zones        []Zone
	sensor       Sensor
	speed        *int
	reapplySpeed bool

	lastTemp       float64
	haveTemp       bool
	lastSensorRead time.Time
	sensorFailures int
	fallback       *Effect
}

func buildPortStates(config *Config) []*portState {
	ports := make([]*portState, 0, len(config.Ports))
	for key, pc := range config.Ports {
		// Config was validated; these cannot fail here.
		id, _ := strconv.Atoi(key)
		effect, _ := pc.buildEffect()
		state := &portState{
			port:         byte(id),
			ledCount:     pc.LEDCount,
			effect:       effect,
			speed:        pc.Speed,
			reapplySpeed: pc.ReapplySpeed,
		}
		if len(pc.Zones) > 0 {
			state.zones, _ = pc.buildZones()
			state.sensor = LMSensors{Spec: pc.Sensor}
		}
		ports = append(ports, state)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].port < ports[j].port })
	return ports
}

// tick resolves the temperature reading when due and advances phase.
// Sensor failure is non-fatal: the last reading is held; with no
// reading yet the port maps as if in its lowest zone.
func (p *portState) tick(now time.Time) {
	if p.sensor != nil && now.Sub(p.lastSensorRead) >= sensorReadInterval {
		p.lastSensorRead = now
		temp, err := p.sensor.Read()
		if err != nil {
			p.sensorFailures++
			log.WithError(err).WithField("port", p.port).Warn("sensor read failed, holding last reading")
		} else {
			p.sensorFailures = 0
			p.haveTemp = true
			p.lastTemp = temp
		}
	}
	p.effect.Advance()
	if p.fallback != nil {
		p.fallback.Advance()
	}
}

func (p *portState) animated() bool {
	return p.effect.Animated() || len(p.zones) > 0
}

func (p *portState) targetSpeed() (byte, bool) {
	if len(p.zones) > 0 {
		return p.currentZone().Speed, true
	}
	if p.speed != nil {
		return byte(*p.speed), true
	}
	return 0, false
}

func (p *portState) currentZone() Zone {
	temp := p.zones[0].MinTemp
	if p.haveTemp {
		temp = p.lastTemp
	}
	return mapZone(p.zones, temp)
}

// frame renders this tick's colors, applying the active zone's color
// override to the effect's base color when one is set.
func (p *portState) frame() []device.Color {
	if p.sensorBroken() {
		return p.fallbackCue().Render(p.ledCount)
	}
	if len(p.zones) > 0 {
		if zone := p.currentZone(); zone.Color != nil {
			return p.effect.RenderBase(*zone.Color, p.ledCount)
		}
	}
	return p.effect.Render(p.ledCount)
}

func (p *portState) sensorBroken() bool {
	return p.sensor != nil && !p.haveTemp && p.sensorFailures >= sensorFailureLimit
}

// fallbackCue is a magenta blink shown when the sensor never produced a
// reading, so a misconfigured sensor is visible on the hardware itself.
func (p *portState) fallbackCue() *Effect {
	if p.fallback == nil {
		p.fallback = &Effect{
			Kind:       EffectBlink,
			Color:      device.Magenta,
			Speed:      SpeedExtreme,
			Brightness: p.effect.Brightness,
		}
	}
	return p.fallback
}
