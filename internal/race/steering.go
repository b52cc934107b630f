package race

import (
	stdmath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/tdr2024/pkg/math"
)

const (
	// turnRate is how fast any car turns, in radians per second.
	turnRate = 3
	// playerThrust and aiThrust are accelerations in units per second squared.
	playerThrust = 580
	aiThrust     = 600

	// AI racers turn towards the brighter side once the difference exceeds this.
	steerMargin = 10
	// AI racers only accelerate when the track ahead is at least this bright.
	frontThreshold = 50
)

// Controls is the player's input for a single step.
type Controls struct {
	Left   bool
	Right  bool
	Thrust bool
}

// Whiskers are guidance samples around a racer.
type Whiskers struct {
	Left, Right   int // π/12 either side, 425 units out
	Left2, Right2 int // π/6 either side, 200 units out
	Front         int // straight ahead, 425 units out
}

// Whiskers samples the guidance field around r. All samples read 0
// without a guidance field.
func (w *World) Whiskers(r *Racer) Whiskers {
	if w.Guide == nil {
		return Whiskers{}
	}
	sample := func(dist, offset float32) int {
		return w.Guide.At(r.Position.Add(math.FromAngle(r.Angle + offset).Scale(dist)))
	}
	return Whiskers{
		Left:   sample(425, stdmath.Pi/12),
		Right:  sample(425, -stdmath.Pi/12),
		Left2:  sample(200, stdmath.Pi/6),
		Right2: sample(200, -stdmath.Pi/6),
		Front:  sample(425, 0),
	}
}

// Steer returns the controls the guidance field suggests for wh.
// Both turns may be set at once, in which case they cancel out.
func Steer(wh Whiskers) Controls {
	return Controls{
		Left:   wh.Left-steerMargin > wh.Right || wh.Left2-steerMargin > wh.Right2,
		Right:  wh.Right-steerMargin > wh.Left || wh.Right2-steerMargin > wh.Left2,
		Thrust: wh.Front > frontThreshold,
	}
}

// Autopilot returns the controls an AI driver would choose for r.
func (w *World) Autopilot(r *Racer) Controls {
	return Steer(w.Whiskers(r))
}

func (w *World) drivePlayer(r *Racer, dt float32, c Controls) {
	if r.servePenalty(dt) {
		return
	}
	applyControls(r, dt, c, playerThrust)
}

func (w *World) driveAI(r *Racer, dt float32) {
	// without guidance AI cars sit still and do not serve penalties
	if w.Guide == nil {
		return
	}
	if r.servePenalty(dt) {
		return
	}

	wh := w.Whiskers(r)
	c := Steer(wh)
	if w.opts.Debug >= 2 {
		w.log.Debug("steering",
			zap.String("racer", r.Name),
			zap.Any("whiskers", wh),
			zap.Bool("left", c.Left),
			zap.Bool("right", c.Right),
			zap.Bool("thrust", c.Thrust))
	}
	applyControls(r, dt, c, aiThrust)
}

func applyControls(r *Racer, dt float32, c Controls, thrust float32) {
	if c.Left {
		r.Angle += dt * turnRate
	}
	if c.Right {
		r.Angle -= dt * turnRate
	}
	if c.Thrust {
		r.Velocity = r.Velocity.Add(math.FromAngle(r.Angle).Scale(dt * thrust))
	}
	r.normalizeAngle()
}
