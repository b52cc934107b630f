package race

import (
	"fmt"
	stdmath "math"

	"github.com/Faultbox/tdr2024/internal/track"
	"github.com/Faultbox/tdr2024/pkg/geometry"
	"github.com/Faultbox/tdr2024/pkg/math"
)

// CarSize is the sprite size of every car in the kenney racing pack.
var CarSize = math.V2(70, 121)

// carRounding keeps 60% of each edge straight, which gives the boxes a
// good feel against most car artwork.
const carRounding = 60

// Racer is a car taking part in a race.
type Racer struct {
	Name   string
	Sprite string
	Player bool

	Position math.Vec2
	// Angle is the heading in radians from the +X axis, kept in (-π, π].
	Angle    float32
	Velocity math.Vec2
	Size     math.Vec2

	// Penalty is the time, in seconds, the racer must still sit out.
	Penalty float32
	// TotalPenalty accumulates every penalty ever applied.
	TotalPenalty float32

	box   geometry.Polygon
	trace track.Trace
}

// NewRacer creates a racer with a rounded collision box of the given size.
func NewRacer(name string, player bool, pos math.Vec2, angle float32, size math.Vec2) (*Racer, error) {
	box, err := geometry.RoundedRect(size, carRounding)
	if err != nil {
		return nil, fmt.Errorf("racer %s: %w", name, err)
	}
	r := &Racer{
		Name:     name,
		Player:   player,
		Position: pos,
		Angle:    angle,
		Size:     size,
		box:      box,
	}
	r.normalizeAngle()
	return r, nil
}

// Rotation is the sprite rotation. Car sprites point up the screen, so a
// heading of π/2 draws unrotated.
func (r *Racer) Rotation() float32 {
	return r.Angle - stdmath.Pi/2
}

// Box returns the collision box in world space.
func (r *Racer) Box() geometry.Polygon {
	return r.box.Transform(r.Position, r.Rotation())
}

// Speed returns the magnitude of the velocity.
func (r *Racer) Speed() float32 {
	return r.Velocity.Length()
}

// Heading returns the unit vector the car points along.
func (r *Racer) Heading() math.Vec2 {
	return math.FromAngle(r.Angle)
}

// LastTile returns the last track tile the racer was seen on.
func (r *Racer) LastTile() (math.Vec2, bool) {
	return r.trace.Last()
}

func (r *Racer) normalizeAngle() {
	for r.Angle > stdmath.Pi {
		r.Angle -= 2 * stdmath.Pi
	}
	for r.Angle <= -stdmath.Pi {
		r.Angle += 2 * stdmath.Pi
	}
}

// servePenalty counts down an outstanding penalty and reports whether the
// racer is still held this step.
func (r *Racer) servePenalty(dt float32) bool {
	if r.Penalty <= 0 {
		return false
	}
	r.Penalty = max(r.Penalty-dt, 0)
	return true
}

// DefaultGrid returns the starting grid: the player at the back and three
// AI cars angled slightly off the straight.
func DefaultGrid() []*Racer {
	type slot struct {
		name, sprite string
		player       bool
		pos          math.Vec2
		angle        float32
	}
	slots := []slot{
		{"red", "kenney_racing-pack/PNG/Cars/car_red_5.png", true, math.V2(-1000, 0), 0},
		{"blue", "kenney_racing-pack/PNG/Cars/car_blue_1.png", false, math.V2(0, 0), stdmath.Pi / 12},
		{"yellow", "kenney_racing-pack/PNG/Cars/car_yellow_3.png", false, math.V2(-333.3, 0), stdmath.Pi / 12},
		{"green", "kenney_racing-pack/PNG/Cars/car_green_4.png", false, math.V2(-666.6, 0), stdmath.Pi / 12},
	}

	grid := make([]*Racer, 0, len(slots))
	for _, s := range slots {
		r, err := NewRacer(s.name, s.player, s.pos, s.angle, CarSize)
		if err != nil {
			// CarSize is a valid size
			panic(err)
		}
		r.Sprite = s.sprite
		r.Velocity = math.V2(0, 20)
		grid = append(grid, r)
	}
	return grid
}
