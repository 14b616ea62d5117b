package model

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"go.uber.org/zap"

	"github.com/Faultbox/objengine/internal/engine/gpu"
)

// Root signature layout.
const (
	RootTexture   = 0 // descriptor table, t0
	RootTransform = 1 // b0
	RootLighting  = 2 // b1
	RootTint      = 3 // b2
)

// Shader-side binding names.
const (
	TextureBinding   = "uTexture"
	TransformBinding = "WorldViewProjection"
	LightingBinding  = "Lighting"
	TintBinding      = "Tint"
)

func rootParameters() []gpu.RootParameter {
	return []gpu.RootParameter{
		RootTexture: {
			Kind:       gpu.RootDescriptorTable,
			Register:   0,
			Name:       TextureBinding,
			Visibility: gputypes.ShaderStageFragment,
		},
		RootTransform: {
			Kind:       gpu.RootConstantBuffer,
			Register:   0,
			Name:       TransformBinding,
			Visibility: gputypes.ShaderStageVertex,
			BufferType: gputypes.BufferBindingTypeUniform,
		},
		RootLighting: {
			Kind:       gpu.RootConstantBuffer,
			Register:   1,
			Name:       LightingBinding,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			BufferType: gputypes.BufferBindingTypeUniform,
		},
		RootTint: {
			Kind:       gpu.RootConstantBuffer,
			Register:   2,
			Name:       TintBinding,
			Visibility: gputypes.ShaderStageFragment,
			BufferType: gputypes.BufferBindingTypeUniform,
		},
	}
}

func vertexInputs() []gpu.VertexInput {
	inputs := []gpu.VertexInput{
		{Semantic: "POSITION", Location: 0, Format: gputypes.VertexFormatFloat32x4},
		{Semantic: "NORMAL", Location: 1, Format: gputypes.VertexFormatFloat32x3},
		{Semantic: "TEXCOORD", Location: 2, Format: gputypes.VertexFormatFloat32x2},
	}
	offset := 0
	for i := range inputs {
		inputs[i].Offset = offset
		offset += int(inputs[i].Format.Size())
	}
	return inputs
}

// LoadShader loads the model's shader set once. Geometry is loaded only when
// given; hull and domain only when geometry and hull are given. A failed
// load releases what it loaded, leaves the model unchanged and may be retried.
func (m *Model) LoadShader(paths ShaderPaths) error {
	if m.shaderLoaded {
		return nil
	}

	var set gpu.ShaderSet
	fail := func(stage, path string, err error) error {
		releaseShaders(&set)
		err = fmt.Errorf("%w: %s %s: %v", ErrShaderLoad, stage, path, err)
		m.report("LoadShader", err)
		return err
	}

	var err error
	if set.Vertex, err = m.svc.Shaders.LoadVertexShader(paths.Vertex); err != nil {
		return fail("vertex", paths.Vertex, err)
	}
	if set.Pixel, err = m.svc.Shaders.LoadPixelShader(paths.Pixel); err != nil {
		return fail("pixel", paths.Pixel, err)
	}
	if paths.Geometry != "" {
		if set.Geometry, err = m.svc.Shaders.LoadGeometryShader(paths.Geometry); err != nil {
			return fail("geometry", paths.Geometry, err)
		}
		if paths.Hull != "" {
			if set.Hull, err = m.svc.Shaders.LoadHullShader(paths.Hull); err != nil {
				return fail("hull", paths.Hull, err)
			}
			if set.Domain, err = m.svc.Shaders.LoadDomainShader(paths.Domain); err != nil {
				return fail("domain", paths.Domain, err)
			}
		}
	}

	m.shaders = set
	m.shaderLoaded = true
	m.log.Debug("shaders loaded",
		zap.String("vertex", paths.Vertex),
		zap.String("pixel", paths.Pixel),
		zap.Bool("geometry", set.Geometry != nil),
		zap.Bool("tessellation", set.Hull != nil))
	return nil
}

// CreateGraphicsPipeline builds the pipeline once geometry and shaders are
// loaded. Called earlier it does nothing. It runs at most once: a factory
// failure is reported and not retried, and later draws report a null
// pipeline.
func (m *Model) CreateGraphicsPipeline() error {
	if !m.objLoaded || !m.shaderLoaded || m.pipelineCreated {
		return nil
	}
	m.pipelineCreated = true

	fill := gpu.FillSolid
	if m.opts.Wireframe {
		fill = gpu.FillWireframe
	}

	desc := &gpu.PipelineDesc{
		RootParameters: rootParameters(),
		Shaders:        m.shaders,
		Inputs:         vertexInputs(),
		Stride:         VertexSize,
		Topology:       gputypes.PrimitiveTopologyTriangleList,
		Cull:           gputypes.CullModeNone,
		Blend:          gpu.BlendNone,
		Fill:           fill,
		DepthTest:      true,
	}

	p, err := m.svc.Pipelines.CreatePipeline(desc)
	if err != nil {
		err = fmt.Errorf("creating pipeline: %w", err)
		m.report("CreateGraphicsPipeline", err)
		return err
	}
	m.pipeline = p
	m.log.Debug("pipeline created", zap.Bool("null", p == nil))
	return nil
}

func releaseShaders(set *gpu.ShaderSet) {
	for _, s := range []*gpu.Shader{&set.Vertex, &set.Pixel, &set.Geometry, &set.Hull, &set.Domain} {
		if *s != nil {
			(*s).Release()
			*s = nil
		}
	}
}
