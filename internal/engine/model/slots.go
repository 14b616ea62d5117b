package model

import (
	"fmt"

	"github.com/Faultbox/objengine/internal/engine/gpu"
)

// constantAlignment is the required size granularity of constant buffers.
const constantAlignment = 256

type constantBlock interface {
	size() int
	encode(b []byte)
}

// ConstantBuffer pairs a CPU copy of a block with its mapped GPU buffer.
type ConstantBuffer[T constantBlock] struct {
	Data T
	buf  gpu.Buffer
}

func newConstantBuffer[T constantBlock](dev gpu.Device) (*ConstantBuffer[T], error) {
	var zero T
	size := (zero.size() + constantAlignment - 1) &^ (constantAlignment - 1)
	buf, err := dev.CreateBuffer(size, gpu.BufferUsageConstant)
	if err != nil {
		return nil, err
	}
	return &ConstantBuffer[T]{buf: buf}, nil
}

// Flush writes Data into the mapped buffer.
func (c *ConstantBuffer[T]) Flush() {
	c.Data.encode(c.buf.Bytes())
}

// Address returns the GPU address of the buffer.
func (c *ConstantBuffer[T]) Address() uint64 {
	return c.buf.Address()
}

// Release frees the buffer. It is safe on a nil buffer.
func (c *ConstantBuffer[T]) Release() {
	if c == nil || c.buf == nil {
		return
	}
	c.buf.Release()
	c.buf = nil
}

// frameSlot is one set of per-draw constants.
type frameSlot struct {
	transform *ConstantBuffer[WorldViewProjection]
	lighting  *ConstantBuffer[Lighting]
	tint      *ConstantBuffer[Tint]
}

func (s *frameSlot) flush() {
	s.transform.Flush()
	s.lighting.Flush()
	s.tint.Flush()
}

func (s *frameSlot) release() {
	s.transform.Release()
	s.lighting.Release()
	s.tint.Release()
}

// slotRing is a fixed ring of frame slots selected by a cursor that resets
// every frame. Slots used more than once in a frame are overwritten before
// the GPU reads them, so the ring must hold at least as many slots as draws
// per frame.
type slotRing struct {
	slots  []frameSlot
	cursor int
	reuses int
}

func newSlotRing(dev gpu.Device, n int) (*slotRing, error) {
	r := &slotRing{slots: make([]frameSlot, 0, n)}
	for i := 0; i < n; i++ {
		s, err := newFrameSlot(dev)
		if err != nil {
			r.release()
			return nil, fmt.Errorf("constant slot %d: %w", i, err)
		}
		r.slots = append(r.slots, s)
	}
	return r, nil
}

func newFrameSlot(dev gpu.Device) (frameSlot, error) {
	var s frameSlot
	var err error
	if s.transform, err = newConstantBuffer[WorldViewProjection](dev); err != nil {
		return frameSlot{}, err
	}
	if s.lighting, err = newConstantBuffer[Lighting](dev); err != nil {
		s.release()
		return frameSlot{}, err
	}
	if s.tint, err = newConstantBuffer[Tint](dev); err != nil {
		s.release()
		return frameSlot{}, err
	}
	return s, nil
}

// reset rewinds the cursor for a new frame.
func (r *slotRing) reset() {
	r.cursor = 0
}

// acquire returns the slot under the cursor, wrapping to 0 at the end.
// wrapped reports whether the slot was already used this frame.
func (r *slotRing) acquire() (slot *frameSlot, index int, wrapped bool) {
	if r.cursor >= len(r.slots) {
		r.cursor = 0
		r.reuses++
		wrapped = true
	}
	return &r.slots[r.cursor], r.cursor, wrapped
}

// advance moves the cursor past the slot returned by acquire.
func (r *slotRing) advance() {
	r.cursor++
}

func (r *slotRing) release() {
	for i := range r.slots {
		r.slots[i].release()
	}
	r.slots = nil
}
