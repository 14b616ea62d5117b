package formats

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Faultbox/objengine/pkg/math"
)

// DefaultMaterial names the group that collects faces declared before any usemtl.
const DefaultMaterial = "default"

// maxLineSize bounds a single OBJ/MTL line.
const maxLineSize = 1 << 20

// FaceIndex is one face corner, 0-based into the OBJ attribute arrays.
// TexCoord is -1 when the corner carries no uv.
type FaceIndex struct {
	Vertex   int
	TexCoord int
	Normal   int
}

// HasTexCoord reports whether the corner references a texture coordinate.
func (fi FaceIndex) HasTexCoord() bool {
	return fi.TexCoord >= 0
}

// OBJFace is a triangle. Corners are stored in reverse file order so the
// mirrored X axis keeps front faces front-facing.
type OBJFace [3]FaceIndex

// OBJGroup holds the faces drawn with one material.
type OBJGroup struct {
	Material string
	Faces    []OBJFace
}

// OBJ is a parsed Wavefront OBJ file.
type OBJ struct {
	Positions    []math.Vec4 // X mirrored, W = 1
	Normals      []math.Vec3 // X mirrored
	TexCoords    []math.Vec2 // V flipped
	Groups       []OBJGroup  // first-appearance order
	MaterialLibs []string    // raw mtllib references
}

// FaceCount returns the number of triangles across all groups.
func (o *OBJ) FaceCount() int {
	n := 0
	for i := range o.Groups {
		n += len(o.Groups[i].Faces)
	}
	return n
}

// Group returns the group for a material name, or nil.
func (o *OBJ) Group(material string) *OBJGroup {
	for i := range o.Groups {
		if o.Groups[i].Material == material {
			return &o.Groups[i]
		}
	}
	return nil
}

type objParser struct {
	obj     *OBJ
	groups  map[string]int
	current int // index into obj.Groups, -1 before the first face or usemtl
}

// ParseOBJ parses OBJ text. Parsing stops at the first error.
func ParseOBJ(r io.Reader) (*OBJ, error) {
	p := &objParser{
		obj:     &OBJ{},
		groups:  make(map[string]int),
		current: -1,
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		if err := p.parseLine(scanner.Text()); err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	return p.obj, nil
}

// LoadOBJ parses an OBJ file from disk.
func LoadOBJ(path string) (*OBJ, error) {
	f, err := openText(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	obj, err := ParseOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("parsing OBJ %s: %w", path, err)
	}
	return obj, nil
}

func (p *objParser) parseLine(text string) error {
	fields := strings.Fields(text)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}

	switch fields[0] {
	case "v":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		p.obj.Positions = append(p.obj.Positions, math.Vec4{-v[0], v[1], v[2], 1})

	case "vn":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		p.obj.Normals = append(p.obj.Normals, math.Vec3{X: -v[0], Y: v[1], Z: v[2]})

	case "vt":
		v, err := parseFloats(fields[1:], 2)
		if err != nil {
			return err
		}
		p.obj.TexCoords = append(p.obj.TexCoords, math.Vec2{X: v[0], Y: 1 - v[1]})

	case "usemtl":
		if len(fields) < 2 {
			return fmt.Errorf("%w: usemtl without a name", ErrMalformedLine)
		}
		p.use(strings.Join(fields[1:], " "))

	case "mtllib":
		if len(fields) < 2 {
			return fmt.Errorf("%w: mtllib without a file", ErrMalformedLine)
		}
		p.obj.MaterialLibs = append(p.obj.MaterialLibs, fields[1:]...)

	case "f":
		return p.parseFace(fields[1:])
	}

	return nil
}

// use selects the group for a material, creating it on first use.
func (p *objParser) use(material string) {
	if idx, ok := p.groups[material]; ok {
		p.current = idx
		return
	}
	p.obj.Groups = append(p.obj.Groups, OBJGroup{Material: material})
	p.current = len(p.obj.Groups) - 1
	p.groups[material] = p.current
}

func (p *objParser) parseFace(corners []string) error {
	if len(corners) != 3 {
		return fmt.Errorf("%w: face has %d corners", ErrUnsupportedTopology, len(corners))
	}

	var face OBJFace
	for i, c := range corners {
		fi, err := p.parseCorner(c)
		if err != nil {
			return err
		}
		face[2-i] = fi
	}

	if p.current < 0 {
		p.use(DefaultMaterial)
	}
	g := &p.obj.Groups[p.current]
	g.Faces = append(g.Faces, face)
	return nil
}

// parseCorner accepts v/uv/n, v//n and v/n.
func (p *objParser) parseCorner(s string) (FaceIndex, error) {
	parts := strings.Split(s, "/")

	var vs, ts, ns string
	switch len(parts) {
	case 2:
		vs, ns = parts[0], parts[1]
	case 3:
		vs, ts, ns = parts[0], parts[1], parts[2]
	default:
		return FaceIndex{}, fmt.Errorf("%w: %q", ErrUnsupportedFaceFormat, s)
	}
	if ns == "" {
		return FaceIndex{}, fmt.Errorf("%w: %q", ErrUnsupportedFaceFormat, s)
	}

	fi := FaceIndex{TexCoord: -1}
	var err error
	if fi.Vertex, err = resolveIndex(vs, len(p.obj.Positions)); err != nil {
		return FaceIndex{}, err
	}
	if fi.Normal, err = resolveIndex(ns, len(p.obj.Normals)); err != nil {
		return FaceIndex{}, err
	}
	if ts != "" {
		if fi.TexCoord, err = resolveIndex(ts, len(p.obj.TexCoords)); err != nil {
			return FaceIndex{}, err
		}
	}
	return fi, nil
}

// resolveIndex converts a 1-based (or negative, relative) OBJ index to 0-based.
// Range checks against the final arrays happen when the mesh is built.
func resolveIndex(s string, count int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad index %q", ErrMalformedLine, s)
	}
	switch {
	case n > 0:
		return n - 1, nil
	case n < 0 && count+n >= 0:
		return count + n, nil
	case n < 0:
		return 0, fmt.Errorf("%w: relative index %d before start", ErrMalformedLine, n)
	default:
		return 0, fmt.Errorf("%w: index 0", ErrMalformedLine)
	}
}

// parseFloats parses at least n leading floats; extra fields are ignored.
func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("%w: want %d values, got %d", ErrMalformedLine, n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLine, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
