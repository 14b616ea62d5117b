package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/gogpu/gputypes"
	"go.uber.org/zap"

	"github.com/Faultbox/objengine/internal/engine/gpu"
	"github.com/Faultbox/objengine/internal/engine/shader"
)

// Shader is a compiled GL shader object.
type Shader struct {
	id    uint32
	stage gpu.ShaderStage
}

func (s *Shader) Stage() gpu.ShaderStage { return s.stage }

// Release deletes the shader object. Linked programs keep working.
func (s *Shader) Release() {
	if s.id != 0 {
		gl.DeleteShader(s.id)
		s.id = 0
	}
}

// ShaderLoader compiles GLSL files, falling back to the builtin sources.
type ShaderLoader struct{}

func (ShaderLoader) load(path string, stage gpu.ShaderStage, glStage shader.Stage) (gpu.Shader, error) {
	src, err := shader.ReadSource(path)
	if err != nil {
		return nil, err
	}
	id, err := shader.Compile(src, glStage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Shader{id: id, stage: stage}, nil
}

func (l ShaderLoader) LoadVertexShader(path string) (gpu.Shader, error) {
	return l.load(path, gpu.StageVertex, shader.Vertex)
}

func (l ShaderLoader) LoadPixelShader(path string) (gpu.Shader, error) {
	return l.load(path, gpu.StagePixel, shader.Fragment)
}

func (l ShaderLoader) LoadGeometryShader(path string) (gpu.Shader, error) {
	return l.load(path, gpu.StageGeometry, shader.Geometry)
}

func (l ShaderLoader) LoadHullShader(path string) (gpu.Shader, error) {
	return l.load(path, gpu.StageHull, shader.Hull)
}

func (l ShaderLoader) LoadDomainShader(path string) (gpu.Shader, error) {
	return l.load(path, gpu.StageDomain, shader.Domain)
}

// Pipeline is a linked program with its vertex array and raster state.
type Pipeline struct {
	program  uint32
	vao      uint32
	inputs   []gpu.VertexInput
	roots    []gpu.RootParameter
	blend    gpu.BlendMode
	fill     gpu.FillMode
	cull     gputypes.CullMode
	depth    bool
	patches  bool
	released bool
}

// Release deletes the program and vertex array.
func (p *Pipeline) Release() {
	if p.released {
		return
	}
	gl.DeleteProgram(p.program)
	gl.DeleteVertexArrays(1, &p.vao)
	p.released = true
}

func (p *Pipeline) applyState() {
	if p.depth {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}

	switch p.blend {
	case gpu.BlendAlpha:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	default:
		gl.Disable(gl.BLEND)
	}

	if p.fill == gpu.FillWireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}

	switch p.cull {
	case gputypes.CullModeFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	case gputypes.CullModeBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	default:
		gl.Disable(gl.CULL_FACE)
	}

	if p.patches {
		gl.PatchParameteri(gl.PATCH_VERTICES, 3)
	}
}

// textureUnit returns the texture unit of a descriptor-table root parameter.
func (p *Pipeline) textureUnit(rootIndex int) (uint32, bool) {
	if rootIndex < 0 || rootIndex >= len(p.roots) {
		return 0, false
	}
	rp := p.roots[rootIndex]
	if rp.Kind != gpu.RootDescriptorTable {
		return 0, false
	}
	return uint32(rp.Register), true
}

// pointAttributes sets attribute pointers for the bound vertex buffer.
func (p *Pipeline) pointAttributes(stride int32) {
	for _, in := range p.inputs {
		loc := uint32(in.Location)
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointerWithOffset(loc, attribComponents(in.Format), gl.FLOAT, false, stride, uintptr(in.Offset))
	}
}

// attribComponents returns the float count of a vertex format.
func attribComponents(f gputypes.VertexFormat) int32 {
	switch f {
	case gputypes.VertexFormatFloat32:
		return 1
	case gputypes.VertexFormatFloat32x2:
		return 2
	case gputypes.VertexFormatFloat32x3:
		return 3
	case gputypes.VertexFormatFloat32x4:
		return 4
	default:
		return int32(f.Size() / 4)
	}
}

// PipelineFactory links programs for pipeline descriptions.
type PipelineFactory struct {
	Log *zap.Logger
}

// CreatePipeline links the shader set and binds root parameters by name:
// constant buffers to the uniform block binding equal to their root index,
// descriptor tables to the sampler texture unit equal to their register.
func (f PipelineFactory) CreatePipeline(desc *gpu.PipelineDesc) (gpu.Pipeline, error) {
	ids, err := shaderIDs(desc.Shaders)
	if err != nil {
		return nil, err
	}
	program, err := shader.Link(ids...)
	if err != nil {
		return nil, err
	}

	gl.UseProgram(program)
	for i, rp := range desc.RootParameters {
		switch rp.Kind {
		case gpu.RootConstantBuffer:
			if !shader.BindUniformBlock(program, rp.Name, uint32(i)) && f.Log != nil {
				f.Log.Debug("uniform block not used by program", zap.String("block", rp.Name))
			}
		case gpu.RootDescriptorTable:
			if loc := shader.GetUniform(program, rp.Name); loc >= 0 {
				gl.Uniform1i(loc, int32(rp.Register))
			}
		}
	}
	gl.UseProgram(0)

	p := &Pipeline{
		program: program,
		inputs:  append([]gpu.VertexInput(nil), desc.Inputs...),
		roots:   append([]gpu.RootParameter(nil), desc.RootParameters...),
		blend:   desc.Blend,
		fill:    desc.Fill,
		cull:    desc.Cull,
		depth:   desc.DepthTest,
		patches: desc.Shaders.Hull != nil,
	}
	gl.GenVertexArrays(1, &p.vao)
	return p, nil
}

func shaderIDs(set gpu.ShaderSet) ([]uint32, error) {
	var ids []uint32
	for _, s := range []gpu.Shader{set.Vertex, set.Pixel, set.Geometry, set.Hull, set.Domain} {
		if s == nil {
			continue
		}
		gs, ok := s.(*Shader)
		if !ok {
			return nil, fmt.Errorf("shader %s was not created by the GL loader", s.Stage())
		}
		ids = append(ids, gs.id)
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("pipeline needs vertex and pixel shaders")
	}
	return ids, nil
}
