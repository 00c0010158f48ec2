// Package engine provides the tick-based simulation loop and the building
// performance engine.
package engine

import (
	"fmt"
	"log/slog"
	"time"
)

// Engine drives the simulation forward. The loop is the single writer:
// every mutation and recompute pass serializes through the simulation it
// drives.
type Engine struct {
	Tick        uint64        // Current tick counter (monotonic, never resets)
	Speed       float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval    time.Duration // Base tick interval
	TicksPerDay int
	Running     bool

	// Callbacks for each tick layer — populated during setup.
	OnTick func(tick uint64) // Every tick
	OnDay  func(tick uint64) // Every TicksPerDay ticks
}

// NewEngine creates a simulation engine with the given pacing.
func NewEngine(interval time.Duration, ticksPerDay int) *Engine {
	if ticksPerDay <= 0 {
		ticksPerDay = 24
	}
	return &Engine{
		Speed:       1.0,
		Interval:    interval,
		TicksPerDay: ticksPerDay,
	}
}

// Run starts the simulation loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	e.Running = true
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed)

	for e.Running {
		if e.Speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick)
}

// Stop halts the simulation loop.
func (e *Engine) Stop() {
	e.Running = false
}

// Step advances the simulation by one tick.
func (e *Engine) Step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}

	if e.Tick%uint64(e.TicksPerDay) == 0 && e.OnDay != nil {
		e.OnDay(e.Tick)
	}
}

// SimTime returns a human-readable simulation time from a tick number.
func SimTime(tick uint64, ticksPerDay int) string {
	if ticksPerDay <= 0 {
		ticksPerDay = 24
	}
	day := tick/uint64(ticksPerDay) + 1
	hour := tick % uint64(ticksPerDay)
	return fmt.Sprintf("Day %d, %02d:00", day, hour)
}
