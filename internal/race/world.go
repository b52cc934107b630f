// Package race runs a headless, fixed-step simulation of a race on a level.
package race

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/tdr2024/internal/logger"
	"github.com/Faultbox/tdr2024/internal/objectmap"
	"github.com/Faultbox/tdr2024/internal/track"
	"github.com/Faultbox/tdr2024/pkg/geometry"
	"github.com/Faultbox/tdr2024/pkg/tiled"
)

// treeRounding gives trees a rounder footprint than blocks.
const treeRounding = 30

// Obstacle is a piece of fixed scenery cars bounce off.
type Obstacle struct {
	objectmap.Placement
	box geometry.Polygon
}

// NewObstacle builds the world-space collision box for a placed object.
// Trees get a rounded box, everything else a plain rectangle.
func NewObstacle(p objectmap.Placement) (Obstacle, error) {
	var (
		box geometry.Polygon
		err error
	)
	if p.Collider == objectmap.Tree {
		box, err = geometry.RoundedRect(p.Size(), treeRounding)
	} else {
		box, err = geometry.Rect(p.Size())
	}
	if err != nil {
		return Obstacle{}, fmt.Errorf("object %d: %w", p.ObjectID, err)
	}
	return Obstacle{Placement: p, box: box.Transform(p.Position, 0)}, nil
}

// Box returns the collision box in world space.
func (o Obstacle) Box() geometry.Polygon {
	return o.box
}

// Options configures a world.
type Options struct {
	Guidance track.Params
	// PenalizeAI applies corner-cutting penalties to AI racers too. The
	// guidance field cannot steer around every corner of every level, so
	// by default only the player is penalised.
	PenalizeAI bool
	// Debug is the debug verbosity: 1 logs collisions, 2 also logs steering.
	Debug int
}

// DefaultOptions returns the options the game uses.
func DefaultOptions() Options {
	return Options{Guidance: track.DefaultParams()}
}

// World is the simulation state.
type World struct {
	Racers  []*Racer
	Scenery []Obstacle

	// Guide steers AI racers and drags cars off the track. Nil disables both.
	Guide *track.GuidanceField
	// Penalties tracks corner cutting. Nil disables penalties.
	Penalties *track.PenaltyTracker

	// Elapsed is the simulated time in seconds.
	Elapsed float32
	Steps   int

	opts Options
	log  *zap.Logger
}

// NewWorld builds a world for m with the default starting grid. Objects
// that cannot be placed are logged and left out.
func NewWorld(m *tiled.Map, opts Options) (*World, error) {
	w := &World{
		Racers: DefaultGrid(),
		opts:   opts,
		log:    logger.Named("race"),
	}

	guide, err := track.NewGuidanceField(m, opts.Guidance)
	if err != nil {
		return nil, fmt.Errorf("building guidance field: %w", err)
	}
	w.Guide = guide

	penalties, err := track.NewPenaltyTracker(m)
	if err != nil {
		return nil, fmt.Errorf("building penalty tracker: %w", err)
	}
	w.Penalties = penalties

	placed, errs := objectmap.Place(m)
	for _, err := range errs {
		w.log.Warn("skipping object", zap.Error(err))
	}
	for _, p := range placed {
		o, err := NewObstacle(p)
		if err != nil {
			w.log.Warn("skipping object", zap.Error(err))
			continue
		}
		w.Scenery = append(w.Scenery, o)
	}

	w.log.Info("world ready",
		zap.Int("racers", len(w.Racers)),
		zap.Int("scenery", len(w.Scenery)))
	return w, nil
}

// Player returns the player's racer, or nil.
func (w *World) Player() *Racer {
	for _, r := range w.Racers {
		if r.Player {
			return r
		}
	}
	return nil
}

// Step advances the simulation by dt seconds. controls drive the player.
func (w *World) Step(dt float32, controls Controls) {
	for _, r := range w.Racers {
		if r.Player {
			w.drivePlayer(r, dt, controls)
		} else {
			w.driveAI(r, dt)
		}
	}

	w.applyVelocity(dt)
	w.applyFriction(dt)
	w.collideCars()
	w.collideScenery()
	w.applyTimePenalties()

	w.Elapsed += dt
	w.Steps++
}

// Run steps the world n times, asking control for the player's input before
// each step. It stops early if ctx is done.
func (w *World) Run(ctx context.Context, n int, dt float32, control func(*World) Controls) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var c Controls
		if control != nil {
			c = control(w)
		}
		w.Step(dt, c)
	}
	return nil
}

func (w *World) applyVelocity(dt float32) {
	for _, r := range w.Racers {
		r.Position = r.Position.Add(r.Velocity.Scale(dt))
	}
}

// Off-track drag starts below this guidance value.
const offTrackThreshold = 140

func (w *World) applyFriction(dt float32) {
	for _, r := range w.Racers {
		r.Velocity = r.Velocity.Scale(1 - dt*1.2)

		if w.Guide == nil {
			continue
		}
		if pixel := w.Guide.At(r.Position); pixel < offTrackThreshold {
			factor := 1.2 + 1.2*(1-float32(pixel)/offTrackThreshold)
			r.Velocity = r.Velocity.Scale(1 - dt*factor)
		}
	}
}

func (w *World) applyTimePenalties() {
	if w.Penalties == nil {
		return
	}
	for _, r := range w.Racers {
		if !r.Player && !w.opts.PenalizeAI {
			continue
		}
		if p := w.Penalties.Observe(&r.trace, r.Position); p > 0 {
			r.Penalty += p
			r.TotalPenalty += p
			w.log.Debug("time penalty",
				zap.String("racer", r.Name),
				zap.Float32("tiles", p),
				zap.Float32("elapsed", w.Elapsed))
		}
	}
}
