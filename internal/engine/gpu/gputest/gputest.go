// Package gputest provides in-memory gpu collaborators for tests.
package gputest

import (
	"errors"
	"fmt"

	"github.com/Faultbox/objengine/internal/engine/gpu"
)

// Buffer is a byte-slice backed gpu.Buffer.
type Buffer struct {
	Data     []byte
	Usage    gpu.BufferUsage
	Addr     uint64
	Released bool
}

func (b *Buffer) Bytes() []byte   { return b.Data }
func (b *Buffer) Address() uint64 { return b.Addr }
func (b *Buffer) Size() int       { return len(b.Data) }
func (b *Buffer) Release()        { b.Released = true }

// Device hands out Buffers with sequential addresses.
type Device struct {
	Buffers []*Buffer
	// FailAfter makes CreateBuffer fail once this many buffers exist (0 = never).
	FailAfter int
	Commands  *CommandList
	next      uint64
}

// NewDevice returns a device with an empty command list.
func NewDevice() *Device {
	return &Device{Commands: &CommandList{}, next: 0x1000}
}

func (d *Device) CreateBuffer(size int, usage gpu.BufferUsage) (gpu.Buffer, error) {
	if d.FailAfter > 0 && len(d.Buffers) >= d.FailAfter {
		return nil, errors.New("gputest: out of buffer memory")
	}
	b := &Buffer{Data: make([]byte, size), Usage: usage, Addr: d.next}
	d.next += uint64(size) + 0x100
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) CommandList() gpu.CommandList { return d.Commands }

// Live returns the number of buffers not yet released.
func (d *Device) Live() int {
	n := 0
	for _, b := range d.Buffers {
		if !b.Released {
			n++
		}
	}
	return n
}

// Buffer returns the buffer with the given address, or nil.
func (d *Device) Buffer(addr uint64) *Buffer {
	for _, b := range d.Buffers {
		if b.Addr == addr {
			return b
		}
	}
	return nil
}

// Command is one recorded command-list call.
type Command struct {
	Op        string
	RootIndex int
	Address   uint64
	Heap      gpu.DescriptorHeap
	Pipeline  gpu.Pipeline
	View      gpu.VertexBufferView
	Count     int
}

// CommandList records calls in order.
type CommandList struct {
	Commands []Command
}

func (c *CommandList) SetPipeline(p gpu.Pipeline) {
	c.Commands = append(c.Commands, Command{Op: "SetPipeline", Pipeline: p})
}

func (c *CommandList) SetDescriptorTable(rootIndex int, heap gpu.DescriptorHeap) {
	c.Commands = append(c.Commands, Command{Op: "SetDescriptorTable", RootIndex: rootIndex, Heap: heap})
}

func (c *CommandList) SetVertexBuffer(view gpu.VertexBufferView) {
	c.Commands = append(c.Commands, Command{Op: "SetVertexBuffer", View: view, Address: view.Address})
}

func (c *CommandList) SetConstantBuffer(rootIndex int, address uint64) {
	c.Commands = append(c.Commands, Command{Op: "SetConstantBuffer", RootIndex: rootIndex, Address: address})
}

func (c *CommandList) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance int) {
	c.Commands = append(c.Commands, Command{Op: "DrawInstanced", Count: vertexCount})
}

// Ops returns the recorded operation names.
func (c *CommandList) Ops() []string {
	ops := make([]string, len(c.Commands))
	for i, cmd := range c.Commands {
		ops[i] = cmd.Op
	}
	return ops
}

// Filter returns the commands with the given op.
func (c *CommandList) Filter(op string) []Command {
	var out []Command
	for _, cmd := range c.Commands {
		if cmd.Op == op {
			out = append(out, cmd)
		}
	}
	return out
}

// Reset clears recorded commands.
func (c *CommandList) Reset() { c.Commands = nil }

// Shader is a named fake shader.
type Shader struct {
	Path     string
	Kind     gpu.ShaderStage
	Released bool
}

func (s *Shader) Stage() gpu.ShaderStage { return s.Kind }
func (s *Shader) Release()               { s.Released = true }

// ShaderLoader succeeds for every path not listed in Missing.
type ShaderLoader struct {
	Missing map[string]bool
	Loaded  []*Shader
}

func (l *ShaderLoader) load(path string, stage gpu.ShaderStage) (gpu.Shader, error) {
	if l.Missing[path] {
		return nil, fmt.Errorf("gputest: %s shader %s not found", stage, path)
	}
	s := &Shader{Path: path, Kind: stage}
	l.Loaded = append(l.Loaded, s)
	return s, nil
}

func (l *ShaderLoader) LoadVertexShader(path string) (gpu.Shader, error) {
	return l.load(path, gpu.StageVertex)
}

func (l *ShaderLoader) LoadPixelShader(path string) (gpu.Shader, error) {
	return l.load(path, gpu.StagePixel)
}

func (l *ShaderLoader) LoadGeometryShader(path string) (gpu.Shader, error) {
	return l.load(path, gpu.StageGeometry)
}

func (l *ShaderLoader) LoadHullShader(path string) (gpu.Shader, error) {
	return l.load(path, gpu.StageHull)
}

func (l *ShaderLoader) LoadDomainShader(path string) (gpu.Shader, error) {
	return l.load(path, gpu.StageDomain)
}

// Stages returns the stages loaded so far, in order.
func (l *ShaderLoader) Stages() []gpu.ShaderStage {
	out := make([]gpu.ShaderStage, len(l.Loaded))
	for i, s := range l.Loaded {
		out[i] = s.Kind
	}
	return out
}

// Texture is a fake texture.
type Texture struct {
	Path    string
	Invalid bool
	Pending bool
	W, H    int
}

func (t *Texture) Valid() bool               { return !t.Invalid }
func (t *Texture) Ready() bool               { return !t.Pending }
func (t *Texture) Size() (width, height int) { return t.W, t.H }

// TextureLoader returns valid textures for paths in Files, invalid otherwise.
type TextureLoader struct {
	Files     map[string]bool
	White     *Texture
	Requested []string
	Async     []string
}

// NewTextureLoader returns a loader that knows the given files.
func NewTextureLoader(files ...string) *TextureLoader {
	l := &TextureLoader{
		Files: make(map[string]bool),
		White: &Texture{Path: "<white>", W: 1, H: 1},
	}
	for _, f := range files {
		l.Files[f] = true
	}
	return l
}

func (l *TextureLoader) LoadTexture(path string) gpu.Texture {
	l.Requested = append(l.Requested, path)
	return &Texture{Path: path, Invalid: !l.Files[path], W: 4, H: 4}
}

func (l *TextureLoader) LoadTextureAsync(path string) gpu.Texture {
	l.Async = append(l.Async, path)
	return &Texture{Path: path, Invalid: !l.Files[path], Pending: true, W: 4, H: 4}
}

func (l *TextureLoader) WhiteTexture() gpu.Texture { return l.White }

// Heap is a fixed-capacity fake descriptor heap.
type Heap struct {
	Slots    []gpu.Texture
	Released bool
}

func (h *Heap) Capacity() int { return len(h.Slots) }

func (h *Heap) SetTexture(slot int, tex gpu.Texture) error {
	if slot < 0 || slot >= len(h.Slots) {
		return fmt.Errorf("gputest: heap slot %d out of range", slot)
	}
	h.Slots[slot] = tex
	return nil
}

func (h *Heap) Texture(slot int) gpu.Texture {
	if slot < 0 || slot >= len(h.Slots) {
		return nil
	}
	return h.Slots[slot]
}

func (h *Heap) Release() { h.Released = true }

// HeapAllocator records every heap it creates.
type HeapAllocator struct {
	Heaps []*Heap
}

func (a *HeapAllocator) NewDescriptorHeap(capacity int) (gpu.DescriptorHeap, error) {
	h := &Heap{Slots: make([]gpu.Texture, capacity)}
	a.Heaps = append(a.Heaps, h)
	return h, nil
}

// Pipeline is a fake pipeline state object.
type Pipeline struct {
	Desc     *gpu.PipelineDesc
	Released bool
}

func (p *Pipeline) Release() { p.Released = true }

// PipelineFactory records descriptors. With ReturnNil it hands back a nil
// pipeline and no error; with Err it fails.
type PipelineFactory struct {
	Descs     []*gpu.PipelineDesc
	Created   []*Pipeline
	ReturnNil bool
	Err       error
}

func (f *PipelineFactory) CreatePipeline(desc *gpu.PipelineDesc) (gpu.Pipeline, error) {
	f.Descs = append(f.Descs, desc)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.ReturnNil {
		return nil, nil
	}
	p := &Pipeline{Desc: desc}
	f.Created = append(f.Created, p)
	return p, nil
}
