// Package opengl implements the gpu interfaces on OpenGL 4.1 core.
//
// Buffers keep a CPU shadow copy that stands in for a persistent mapping:
// vertex buffers are uploaded on first bind, constant buffers on every
// bind. All calls must come from the thread that owns the GL context.
package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/objengine/internal/engine/gpu"
)

// Buffer is a GL buffer object with a CPU shadow.
type Buffer struct {
	id       uint32
	target   uint32
	usage    gpu.BufferUsage
	shadow   []byte
	addr     uint64
	uploaded bool
	dev      *Device
}

func (b *Buffer) Bytes() []byte   { return b.shadow }
func (b *Buffer) Address() uint64 { return b.addr }
func (b *Buffer) Size() int       { return len(b.shadow) }

// Release deletes the GL buffer.
func (b *Buffer) Release() {
	if b.id == 0 {
		return
	}
	gl.DeleteBuffers(1, &b.id)
	b.id = 0
	delete(b.dev.buffers, b.addr)
}

// sync uploads the shadow copy if needed and leaves the buffer bound.
func (b *Buffer) sync() {
	gl.BindBuffer(b.target, b.id)
	if b.uploaded && b.usage == gpu.BufferUsageVertex {
		return
	}
	if len(b.shadow) > 0 {
		gl.BufferSubData(b.target, 0, len(b.shadow), gl.Ptr(b.shadow))
	}
	b.uploaded = true
}

// Device creates GL buffers and owns the immediate-mode command list.
type Device struct {
	buffers map[uint64]*Buffer
	next    uint64
	cmd     *CommandList
}

// NewDevice creates a device. gl.Init must already have run.
func NewDevice() *Device {
	d := &Device{
		buffers: make(map[uint64]*Buffer),
		next:    1,
	}
	d.cmd = &CommandList{dev: d}
	return d
}

// CreateBuffer allocates a GL buffer of size bytes.
func (d *Device) CreateBuffer(size int, usage gpu.BufferUsage) (gpu.Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", size)
	}

	target := uint32(gl.ARRAY_BUFFER)
	hint := uint32(gl.STATIC_DRAW)
	if usage == gpu.BufferUsageConstant {
		target = gl.UNIFORM_BUFFER
		hint = gl.DYNAMIC_DRAW
	}

	b := &Buffer{
		target: target,
		usage:  usage,
		shadow: make([]byte, size),
		addr:   d.next,
		dev:    d,
	}
	gl.GenBuffers(1, &b.id)
	if b.id == 0 {
		return nil, fmt.Errorf("glGenBuffers failed for %d bytes", size)
	}
	gl.BindBuffer(target, b.id)
	gl.BufferData(target, size, nil, hint)
	gl.BindBuffer(target, 0)

	d.next++
	d.buffers[b.addr] = b
	return b, nil
}

// CommandList returns the device's command list.
func (d *Device) CommandList() gpu.CommandList {
	return d.cmd
}

// LiveBuffers returns the number of buffers not yet released.
func (d *Device) LiveBuffers() int {
	return len(d.buffers)
}

// Commands returns the concrete command list for frame bookkeeping.
func (d *Device) Commands() *CommandList {
	return d.cmd
}
