package model

import (
	"fmt"

	"github.com/Faultbox/objengine/internal/engine/gpu"
	"github.com/Faultbox/objengine/pkg/formats"
)

// Partition is the geometry drawn with one material: a non-indexed
// triangle list in its own vertex buffer.
type Partition struct {
	Material    string
	FaceCount   int
	VertexCount int

	buffer gpu.Buffer
	view   gpu.VertexBufferView
}

// Release frees the vertex buffer.
func (p *Partition) Release() {
	if p.buffer != nil {
		p.buffer.Release()
		p.buffer = nil
	}
}

// buildPartitions creates one vertex buffer per OBJ group. On error every
// buffer created so far is released.
func buildPartitions(dev gpu.Device, obj *formats.OBJ) ([]*Partition, Bounds, error) {
	var bounds Bounds
	parts := make([]*Partition, 0, len(obj.Groups))

	fail := func(err error) ([]*Partition, Bounds, error) {
		for _, p := range parts {
			p.Release()
		}
		return nil, Bounds{}, err
	}

	first := true
	for gi := range obj.Groups {
		g := &obj.Groups[gi]
		if len(g.Faces) == 0 {
			continue
		}
		p, err := buildPartition(dev, obj, g)
		if err != nil {
			return fail(fmt.Errorf("partition %q: %w", g.Material, err))
		}
		parts = append(parts, p)

		for _, face := range g.Faces {
			for _, c := range face {
				bounds.extend(obj.Positions[c.Vertex], first)
				first = false
			}
		}
	}

	return parts, bounds, nil
}

func buildPartition(dev gpu.Device, obj *formats.OBJ, g *formats.OBJGroup) (*Partition, error) {
	// Validate before allocating so a bad face leaves nothing behind.
	for fi, face := range g.Faces {
		for _, c := range face {
			if err := checkCorner(obj, c); err != nil {
				return nil, fmt.Errorf("face %d: %w", fi, err)
			}
		}
	}

	vertexCount := 3 * len(g.Faces)
	size := vertexCount * VertexSize

	buf, err := dev.CreateBuffer(size, gpu.BufferUsageVertex)
	if err != nil {
		return nil, fmt.Errorf("creating vertex buffer: %w", err)
	}

	data := buf.Bytes()
	off := 0
	for _, face := range g.Faces {
		for _, c := range face {
			v := Vertex{
				Position: obj.Positions[c.Vertex],
				Normal:   obj.Normals[c.Normal],
			}
			// A file without vt records leaves uvs at zero.
			if c.HasTexCoord() && len(obj.TexCoords) > 0 {
				v.TexCoord = obj.TexCoords[c.TexCoord]
			}
			v.put(data[off:])
			off += VertexSize
		}
	}

	return &Partition{
		Material:    g.Material,
		FaceCount:   len(g.Faces),
		VertexCount: vertexCount,
		buffer:      buf,
		view: gpu.VertexBufferView{
			Address: buf.Address(),
			Size:    size,
			Stride:  VertexSize,
		},
	}, nil
}

func checkCorner(obj *formats.OBJ, c formats.FaceIndex) error {
	if c.Vertex < 0 || c.Vertex >= len(obj.Positions) {
		return fmt.Errorf("%w: vertex %d of %d", ErrIndexOutOfRange, c.Vertex+1, len(obj.Positions))
	}
	if c.Normal < 0 || c.Normal >= len(obj.Normals) {
		return fmt.Errorf("%w: normal %d of %d", ErrIndexOutOfRange, c.Normal+1, len(obj.Normals))
	}
	if c.HasTexCoord() && len(obj.TexCoords) > 0 && c.TexCoord >= len(obj.TexCoords) {
		return fmt.Errorf("%w: texcoord %d of %d", ErrIndexOutOfRange, c.TexCoord+1, len(obj.TexCoords))
	}
	return nil
}
