package race

import (
	"go.uber.org/zap"

	"github.com/Faultbox/tdr2024/pkg/geometry"
	"github.com/Faultbox/tdr2024/pkg/math"
)

const (
	// nudge is how far each car moves apart per separation step.
	nudge = 0.5
	// maxSeparation bounds the separation loops. Boxes are at most a few
	// hundred units across, so this is only reached with degenerate input.
	maxSeparation = 4096
)

// collideCars swaps the velocities of touching cars and pushes them apart
// along the line between their centres.
func (w *World) collideCars() {
	for i := 0; i < len(w.Racers); i++ {
		for j := i + 1; j < len(w.Racers); j++ {
			a, b := w.Racers[i], w.Racers[j]
			if !a.Box().IsTouching(b.Box()) {
				continue
			}
			a.Velocity, b.Velocity = b.Velocity, a.Velocity

			dir := b.Position.Sub(a.Position).Normalize()
			if dir == (math.Vec2{}) {
				// stacked exactly on top of each other
				dir = math.V2(1, 0)
			}
			step := dir.Scale(nudge)

			n := 0
			for ; n < maxSeparation && a.Box().IsTouching(b.Box()); n++ {
				a.Position = a.Position.Sub(step)
				b.Position = b.Position.Add(step)
			}
			if w.opts.Debug >= 1 {
				w.log.Debug("car collision",
					zap.String("a", a.Name),
					zap.String("b", b.Name),
					zap.Int("nudges", n))
			}
		}
	}
}

// collideScenery bounces cars off fixed obstacles. A car corner inside an
// obstacle reflects the velocity off the obstacle's nearest edge; an
// obstacle corner inside a car (a head-on hit on a small object) reverses it.
// The car is then pushed out along its new velocity.
func (w *World) collideScenery() {
	for _, r := range w.Racers {
		for _, o := range w.Scenery {
			car, obj := r.Box(), o.Box()

			if pt, ok := car.FirstPointInside(obj); ok {
				r.Velocity = geometry.ReflectAgainstLine(r.Velocity, obj.ClosestEdge(pt))
			} else if _, ok := obj.FirstPointInside(car); ok {
				r.Velocity = r.Velocity.Neg()
			} else {
				continue
			}

			dir := r.Velocity.Normalize()
			if dir == (math.Vec2{}) {
				// stationary car, push straight away from the obstacle
				dir = r.Position.Sub(o.Position).Normalize()
				if dir == (math.Vec2{}) {
					dir = math.V2(0, 1)
				}
			}

			n := 0
			for ; n < maxSeparation && r.Box().IsTouching(obj); n++ {
				r.Position = r.Position.Add(dir)
			}
			if w.opts.Debug >= 1 {
				w.log.Debug("scenery collision",
					zap.String("racer", r.Name),
					zap.Int("object", o.ObjectID),
					zap.Int("pushes", n))
			}
		}
	}
}
