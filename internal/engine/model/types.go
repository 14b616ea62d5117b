// Package model loads OBJ/MTL models into GPU resources and records their
// draw calls.
package model

import (
	"encoding/binary"
	"errors"
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/objengine/internal/engine/errcheck"
	"github.com/Faultbox/objengine/internal/engine/gpu"
	"github.com/Faultbox/objengine/pkg/math"
)

// Model errors. File and topology errors come from pkg/formats.
var (
	ErrIndexOutOfRange = errors.New("face index out of range")
	ErrNullPipeline    = errors.New("pipeline state is null")
	ErrShaderLoad      = errors.New("shader load failed")
)

// VertexSize is the byte size of a packed Vertex.
const VertexSize = 36

// Vertex is one corner of a triangle as laid out in a partition buffer.
type Vertex struct {
	Position math.Vec4
	Normal   math.Vec3
	TexCoord math.Vec2
}

// put writes v as tightly packed little-endian float32s.
func (v *Vertex) put(b []byte) {
	putFloats(b,
		v.Position[0], v.Position[1], v.Position[2], v.Position[3],
		v.Normal.X, v.Normal.Y, v.Normal.Z,
		v.TexCoord.X, v.TexCoord.Y,
	)
}

func putFloats(b []byte, fs ...float32) {
	for i, f := range fs {
		binary.LittleEndian.PutUint32(b[i*4:], gomath.Float32bits(f))
	}
}

// Bounds is the axis-aligned bounding box of the model in object space.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Center returns the middle of the box.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Radius returns half the diagonal.
func (b Bounds) Radius() float32 {
	return b.Max.Sub(b.Min).Length() / 2
}

func (b *Bounds) extend(p math.Vec4, first bool) {
	if first {
		b.Min = math.Vec3{X: p[0], Y: p[1], Z: p[2]}
		b.Max = b.Min
		return
	}
	b.Min.X = min(b.Min.X, p[0])
	b.Min.Y = min(b.Min.Y, p[1])
	b.Min.Z = min(b.Min.Z, p[2])
	b.Max.X = max(b.Max.X, p[0])
	b.Max.Y = max(b.Max.Y, p[1])
	b.Max.Z = max(b.Max.Z, p[2])
}

// State is the load progress of a model. It only moves forward.
type State int

const (
	Unloaded State = iota
	ObjLoaded
	ShaderLoaded
	Loaded
	PipelineReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unloaded:
		return "Unloaded"
	case ObjLoaded:
		return "ObjLoaded"
	case ShaderLoaded:
		return "ShaderLoaded"
	case Loaded:
		return "Loaded"
	case PipelineReady:
		return "PipelineReady"
	default:
		return "Unknown"
	}
}

// Services are the device-side collaborators a model is built on.
// Errors and Logger may be nil.
type Services struct {
	Device    gpu.Device
	Shaders   gpu.ShaderLoader
	Textures  gpu.TextureLoader
	Pipelines gpu.PipelineFactory
	Heaps     gpu.HeapAllocator
	Errors    errcheck.Reporter
	Logger    *zap.Logger
}

// ShaderPaths names the shader sources of a model. Geometry is optional;
// Hull and Domain are used only together and only with Geometry.
type ShaderPaths struct {
	Vertex   string
	Pixel    string
	Geometry string
	Hull     string
	Domain   string
}

// Options configure a model.
type Options struct {
	Name string
	// MaxDrawIndex is the number of times the model may be drawn per frame
	// before constant slots are reused. Values below 1 are clamped to 1.
	MaxDrawIndex int
	// AsyncTextures decodes diffuse maps in the background.
	AsyncTextures bool
	// Wireframe builds the pipeline with wireframe fill.
	Wireframe bool
}
