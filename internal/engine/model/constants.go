package model

import (
	"github.com/Faultbox/objengine/internal/engine/lighting"
	"github.com/Faultbox/objengine/pkg/math"
)

// Constant blocks are encoded with std140 layout rules.

// WorldViewProjection is bound at b0. World is stored transposed and read
// back by a row_major block member; ViewProjection is stored as given.
type WorldViewProjection struct {
	World          math.Mat4
	ViewProjection math.Mat4
}

func (WorldViewProjection) size() int { return 128 }

func (c WorldViewProjection) encode(b []byte) {
	putFloats(b[0:], c.World[:]...)
	putFloats(b[64:], c.ViewProjection[:]...)
}

// Lighting is bound at b1.
type Lighting struct {
	Direction     math.Vec3
	Color         math.Vec3
	EyePos        math.Vec3
	PointPosition math.Vec3
	PointColor    math.Vec3
	PointRange    float32
}

func (Lighting) size() int { return 80 }

func (c Lighting) encode(b []byte) {
	putVec3(b[0:], c.Direction)
	putVec3(b[16:], c.Color)
	putVec3(b[32:], c.EyePos)
	putVec3(b[48:], c.PointPosition)
	putVec3(b[64:], c.PointColor)
	// A float after a vec3 packs into its fourth component.
	putFloats(b[76:], c.PointRange)
}

// newLighting fills the block from light parameters and the eye position.
func newLighting(p lighting.Params, eye math.Vec3) Lighting {
	return Lighting{
		Direction:     p.Direction,
		Color:         p.Color,
		EyePos:        eye,
		PointPosition: p.Point.Position,
		PointColor:    p.Point.Color,
		PointRange:    p.Point.Range,
	}
}

// Tint is bound at b2.
type Tint struct {
	Color math.Vec4
}

func (Tint) size() int { return 16 }

func (c Tint) encode(b []byte) {
	putFloats(b, c.Color[:]...)
}

func putVec3(b []byte, v math.Vec3) {
	putFloats(b, v.X, v.Y, v.Z)
}
