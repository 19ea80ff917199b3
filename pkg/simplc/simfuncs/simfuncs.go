// Package simfuncs ships ready-made simulation event actions — a sine
// generator, a linear ramp, and the tank-level hysteresis scenario of
// the testable properties — for user code to register with a
// scheduler.Scheduler against a live PLC. None of these are core PLC
// behavior; they exist so a demo or conformance harness can drive node
// values end to end through the node registry and sync engine without
// hand-writing a scheduler.EventSpec, mirroring the role
// sine_generator.py plays against the original tool.
package simfuncs

import (
	"context"
	"fmt"
	"math"

	"github.com/sdplc-io/simplc/internal/plcnode"
	"github.com/sdplc-io/simplc/internal/scheduler"
	"github.com/sdplc-io/simplc/internal/value"
)

// userEventPriority matches spec §4.5's priority convention: reconcilers
// run at priority 1, user simulation logic at priority 2 or lower.
const userEventPriority = 2

// SineWave schedules a recurring write of amplitude*sin(2*pi*freqHz*t) to
// node, at the given step and amplitude, grounded on sine_generator.py's
// `sine_wave_reading` event.
func SineWave(s *scheduler.Scheduler, reg *plcnode.Registry, node string, freqHz, amplitude, step, until float64) (string, error) {
	n, err := reg.Lookup(node)
	if err != nil {
		return "", err
	}
	return s.Schedule(scheduler.EventSpec{
		At:       0,
		Until:    until,
		Step:     &step,
		Priority: userEventPriority,
		Label:    fmt.Sprintf("simfuncs:sine:%s", node),
		Action: func(ctx context.Context, t float64) error {
			n.SetValue(value.FromFloat(amplitude * math.Sin(2*math.Pi*freqHz*t)))
			return nil
		},
	}), nil
}

// Ramp schedules a recurring write of a linearly increasing value,
// `start + rate*t`, to node.
func Ramp(s *scheduler.Scheduler, reg *plcnode.Registry, node string, start, rate, step, until float64) (string, error) {
	n, err := reg.Lookup(node)
	if err != nil {
		return "", err
	}
	return s.Schedule(scheduler.EventSpec{
		At:       0,
		Until:    until,
		Step:     &step,
		Priority: userEventPriority,
		Label:    fmt.Sprintf("simfuncs:ramp:%s", node),
		Action: func(ctx context.Context, t float64) error {
			n.SetValue(value.FromFloat(start + rate*t))
			return nil
		},
	}), nil
}

// TankHysteresis schedules the spec §8 scenario 1 event: level integrates
// fillRate*dt while inlet is true and -drainRate*dt while outlet is true,
// clamped to [0, capacity].
func TankHysteresis(s *scheduler.Scheduler, reg *plcnode.Registry, level, inlet, outlet string, fillRate, drainRate, capacity, step, until float64) (string, error) {
	levelNode, err := reg.Lookup(level)
	if err != nil {
		return "", err
	}
	inletNode, err := reg.Lookup(inlet)
	if err != nil {
		return "", err
	}
	outletNode, err := reg.Lookup(outlet)
	if err != nil {
		return "", err
	}

	last := 0.0
	return s.Schedule(scheduler.EventSpec{
		At:       0,
		Until:    until,
		Step:     &step,
		Priority: userEventPriority,
		Label:    fmt.Sprintf("simfuncs:tank:%s", level),
		Action: func(ctx context.Context, t float64) error {
			dt := t - last
			last = t
			cur := levelNode.Value().Float()
			if inletNode.Value().Bool() {
				cur += fillRate * dt
			}
			if outletNode.Value().Bool() {
				cur -= drainRate * dt
			}
			if cur < 0 {
				cur = 0
			}
			if cur > capacity {
				cur = capacity
			}
			levelNode.SetValue(value.FromFloat(cur))
			return nil
		},
	}), nil
}
