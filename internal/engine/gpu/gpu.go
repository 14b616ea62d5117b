// Package gpu defines the device-side collaborators the model layer is written
// against: buffers, shaders, textures, descriptor heaps, pipelines and command
// recording. Implementations live in sub-packages.
package gpu

import "github.com/gogpu/gputypes"

// BufferUsage selects how a buffer is bound.
type BufferUsage int

const (
	BufferUsageVertex BufferUsage = iota
	BufferUsageConstant
)

// String returns the usage name.
func (u BufferUsage) String() string {
	switch u {
	case BufferUsageVertex:
		return "Vertex"
	case BufferUsageConstant:
		return "Constant"
	default:
		return "Unknown"
	}
}

// Buffer is a GPU buffer with a persistent CPU-visible mapping.
// Writes to Bytes are visible to the GPU the next time the buffer is bound.
type Buffer interface {
	Bytes() []byte
	// Address identifies the buffer in command-list calls.
	Address() uint64
	Size() int
	Release()
}

// Device allocates buffers and exposes the frame's command list.
type Device interface {
	CreateBuffer(size int, usage BufferUsage) (Buffer, error)
	CommandList() CommandList
}

// VertexBufferView describes a bound vertex buffer.
type VertexBufferView struct {
	Address uint64
	Size    int
	Stride  int
}

// CommandList records draw state and draw calls.
type CommandList interface {
	SetPipeline(p Pipeline)
	SetDescriptorTable(rootIndex int, heap DescriptorHeap)
	SetVertexBuffer(view VertexBufferView)
	SetConstantBuffer(rootIndex int, address uint64)
	DrawInstanced(vertexCount, instanceCount, startVertex, startInstance int)
}

// ShaderStage identifies a programmable stage.
type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StagePixel
	StageGeometry
	StageHull
	StageDomain
)

// String returns the stage name.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StagePixel:
		return "pixel"
	case StageGeometry:
		return "geometry"
	case StageHull:
		return "hull"
	case StageDomain:
		return "domain"
	default:
		return "unknown"
	}
}

// Shader is a compiled shader stage.
type Shader interface {
	Stage() ShaderStage
	Release()
}

// ShaderLoader compiles shader sources from disk.
type ShaderLoader interface {
	LoadVertexShader(path string) (Shader, error)
	LoadPixelShader(path string) (Shader, error)
	LoadGeometryShader(path string) (Shader, error)
	LoadHullShader(path string) (Shader, error)
	LoadDomainShader(path string) (Shader, error)
}

// Texture is a GPU texture handle.
type Texture interface {
	// Valid is false when the texture failed to load.
	Valid() bool
	// Ready is false while an async upload is still pending.
	Ready() bool
	Size() (width, height int)
}

// TextureLoader loads textures. Loaders never return nil; failures come back
// as textures that report !Valid().
type TextureLoader interface {
	LoadTexture(path string) Texture
	LoadTextureAsync(path string) Texture
	WhiteTexture() Texture
}

// DescriptorHeap holds shader-visible texture views.
type DescriptorHeap interface {
	Capacity() int
	SetTexture(slot int, tex Texture) error
	Texture(slot int) Texture
	Release()
}

// HeapAllocator creates descriptor heaps.
type HeapAllocator interface {
	NewDescriptorHeap(capacity int) (DescriptorHeap, error)
}

// Pipeline is an immutable pipeline state object.
type Pipeline interface {
	Release()
}

// PipelineFactory builds pipeline state objects.
type PipelineFactory interface {
	CreatePipeline(desc *PipelineDesc) (Pipeline, error)
}

// RootParameterKind is the binding kind of a root parameter.
type RootParameterKind int

const (
	RootDescriptorTable RootParameterKind = iota
	RootConstantBuffer
)

// RootParameter is one slot of the root signature. Name is the shader-side
// block or sampler name the parameter binds to.
type RootParameter struct {
	Kind       RootParameterKind
	Register   int
	Name       string
	Visibility gputypes.ShaderStage
	// BufferType is set for constant buffers.
	BufferType gputypes.BufferBindingType
}

// VertexInput is one vertex attribute.
type VertexInput struct {
	Semantic string
	Location int
	Format   gputypes.VertexFormat
	Offset   int
}

// BlendMode selects output blending.
type BlendMode int

const (
	BlendNone BlendMode = iota
	BlendAlpha
)

// FillMode selects rasterizer fill.
type FillMode int

const (
	FillSolid FillMode = iota
	FillWireframe
)

// ShaderSet holds the stages of a pipeline. Optional stages are nil.
type ShaderSet struct {
	Vertex   Shader
	Pixel    Shader
	Geometry Shader
	Hull     Shader
	Domain   Shader
}

// PipelineDesc describes a graphics pipeline.
type PipelineDesc struct {
	RootParameters []RootParameter
	Shaders        ShaderSet
	Inputs         []VertexInput
	Stride         int
	Topology       gputypes.PrimitiveTopology
	Cull           gputypes.CullMode
	Blend          BlendMode
	Fill           FillMode
	DepthTest      bool
}
