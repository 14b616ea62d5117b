// Package lighting holds the light setup shared by model draws.
package lighting

import "github.com/Faultbox/objengine/pkg/math"

// DefaultLightColor is the directional light color as 0xRRGGBBAA.
const DefaultLightColor = 0xffffadff

// PointLight is a single point light.
type PointLight struct {
	Position math.Vec3
	Color    math.Vec3 // may exceed 1 for HDR intensity
	Range    float32
}

// Params is a directional light plus one point light.
type Params struct {
	Direction math.Vec3 // direction the light travels, normalized
	Color     math.Vec3
	Point     PointLight
}

// Defaults returns a warm light shining down and away from the camera
// with a point light above the origin.
func Defaults() Params {
	return Params{
		Direction: math.Vec3{X: 1, Y: -1, Z: -1}.Normalize(),
		Color:     math.ColorFromUint(DefaultLightColor).RGB(),
		Point: PointLight{
			Position: math.Vec3{X: 5, Y: 5, Z: 5},
			Color:    math.Vec3{X: 15, Y: 15, Z: 15},
			Range:    10,
		},
	}
}

// Normalized returns p with a unit direction and a non-negative range.
// A zero direction falls back to the default.
func (p Params) Normalized() Params {
	if p.Direction.Length() == 0 {
		p.Direction = Defaults().Direction
	} else {
		p.Direction = p.Direction.Normalize()
	}
	if p.Point.Range < 0 {
		p.Point.Range = 0
	}
	return p
}
