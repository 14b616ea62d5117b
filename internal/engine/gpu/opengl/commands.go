package opengl

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/objengine/internal/engine/gpu"
)

// boundTexture is implemented by textures that carry a GL name.
type boundTexture interface {
	ID() uint32
}

// CommandList executes calls immediately on the current GL context.
type CommandList struct {
	dev      *Device
	pipeline *Pipeline
	draws    int
}

// SetPipeline binds the program, vertex array and raster state.
func (c *CommandList) SetPipeline(p gpu.Pipeline) {
	gp, ok := p.(*Pipeline)
	if !ok || gp == nil {
		c.pipeline = nil
		return
	}
	if c.pipeline == gp {
		return
	}
	c.pipeline = gp
	gl.UseProgram(gp.program)
	gl.BindVertexArray(gp.vao)
	gp.applyState()
}

// SetDescriptorTable binds slot 0 of the heap to the texture unit of the
// root parameter.
func (c *CommandList) SetDescriptorTable(rootIndex int, heap gpu.DescriptorHeap) {
	if c.pipeline == nil || heap == nil {
		return
	}
	unit, ok := c.pipeline.textureUnit(rootIndex)
	if !ok {
		return
	}
	var id uint32
	if tex, ok := heap.Texture(0).(boundTexture); ok {
		id = tex.ID()
	}
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, id)
}

// SetVertexBuffer binds the buffer and points the pipeline's attributes at it.
func (c *CommandList) SetVertexBuffer(view gpu.VertexBufferView) {
	b, ok := c.dev.buffers[view.Address]
	if !ok || c.pipeline == nil {
		return
	}
	b.sync()
	c.pipeline.pointAttributes(int32(view.Stride))
}

// SetConstantBuffer uploads and binds a uniform buffer at the block binding
// of the root parameter.
func (c *CommandList) SetConstantBuffer(rootIndex int, address uint64) {
	b, ok := c.dev.buffers[address]
	if !ok {
		return
	}
	b.sync()
	gl.BindBufferBase(gl.UNIFORM_BUFFER, uint32(rootIndex), b.id)
}

// DrawInstanced draws non-indexed geometry.
func (c *CommandList) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance int) {
	if c.pipeline == nil {
		return
	}
	mode := uint32(gl.TRIANGLES)
	if c.pipeline.patches {
		mode = gl.PATCHES
	}
	if startInstance != 0 {
		gl.DrawArraysInstancedBaseInstance(mode, int32(startVertex), int32(vertexCount), int32(instanceCount), uint32(startInstance))
	} else {
		gl.DrawArraysInstanced(mode, int32(startVertex), int32(vertexCount), int32(instanceCount))
	}
	c.draws++
}

// Reset forgets cached state. Call it at the start of a frame or after
// other code has touched GL state.
func (c *CommandList) Reset() {
	c.pipeline = nil
	c.draws = 0
}

// Draws returns the number of draw calls since the last Reset.
func (c *CommandList) Draws() int {
	return c.draws
}
