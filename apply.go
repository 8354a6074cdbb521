package riingtrio

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/diffficult/ttriingtrio-controller/device"
)

// ApplyPorts applies every configured port's desired state once: fan
// speed, then one rendered frame. All ports are attempted even when one
// fails; the first error is returned after the pass completes.
func ApplyPorts(ctx context.Context, controller device.Controller, config *Config) error {
	config.Normalize()
	if err := config.Validate(); err != nil {
		return err
	}
	if err := controller.Init(ctx); err != nil {
		return errors.Wrap(err, "controller init")
	}

	var firstErr error
	for _, p := range buildPortStates(config) {
		p.tick(time.Now())
		if speed, ok := p.targetSpeed(); ok {
			if err := controller.SetSpeed(ctx, p.port, speed); err != nil {
				logPortError(p.port, "set speed", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		if err := controller.SetRGB(ctx, p.port, p.frame()); err != nil {
			logPortError(p.port, "set rgb", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
