package formats

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/objengine/pkg/math"
)

const cubeSideOBJ = `# two triangles, two materials
mtllib cube.mtl
v 1 2 3
v 0 1 0
v 0 0 1
v 1 1 1
vn 1 0 0
vn 0 1 0
vt 0.3 0.8
vt 0 0
usemtl red
f 1/1/1 2/2/1 3/1/2
usemtl blue
f 2/1/1 3/2/2 4/1/1
usemtl red
f 4//2 3//2 1//1
`

func TestParseOBJ_Attributes(t *testing.T) {
	obj, err := ParseOBJ(strings.NewReader(cubeSideOBJ))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	if got := obj.Positions[0]; got != (math.Vec4{-1, 2, 3, 1}) {
		t.Errorf("position 0 = %v, want (-1, 2, 3, 1)", got)
	}
	if got := obj.Normals[0]; got != (math.Vec3{X: -1, Y: 0, Z: 0}) {
		t.Errorf("normal 0 = %v, want (-1, 0, 0)", got)
	}

	uv := obj.TexCoords[0]
	if uv.X != 0.3 || abs32(uv.Y-0.2) > 1e-6 {
		t.Errorf("texcoord 0 = %v, want (0.3, 0.2)", uv)
	}

	if len(obj.MaterialLibs) != 1 || obj.MaterialLibs[0] != "cube.mtl" {
		t.Errorf("MaterialLibs = %v, want [cube.mtl]", obj.MaterialLibs)
	}
}

func TestParseOBJ_Groups(t *testing.T) {
	obj, err := ParseOBJ(strings.NewReader(cubeSideOBJ))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	if len(obj.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(obj.Groups))
	}
	if obj.Groups[0].Material != "red" || obj.Groups[1].Material != "blue" {
		t.Errorf("group order = %s, %s; want red, blue", obj.Groups[0].Material, obj.Groups[1].Material)
	}
	if n := len(obj.Group("red").Faces); n != 2 {
		t.Errorf("red faces = %d, want 2", n)
	}
	if n := len(obj.Group("blue").Faces); n != 1 {
		t.Errorf("blue faces = %d, want 1", n)
	}
	if obj.FaceCount() != 3 {
		t.Errorf("FaceCount = %d, want 3", obj.FaceCount())
	}
	if obj.Group("green") != nil {
		t.Error("Group(green) should be nil")
	}
}

func TestParseOBJ_CornerOrder(t *testing.T) {
	obj, err := ParseOBJ(strings.NewReader(cubeSideOBJ))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	// f 1/1/1 2/2/1 3/1/2 is stored reversed
	face := obj.Group("red").Faces[0]
	want := OBJFace{
		{Vertex: 2, TexCoord: 0, Normal: 1},
		{Vertex: 1, TexCoord: 1, Normal: 0},
		{Vertex: 0, TexCoord: 0, Normal: 0},
	}
	if face != want {
		t.Errorf("face = %+v, want %+v", face, want)
	}
}

func TestParseOBJ_CornerFormats(t *testing.T) {
	header := "v 0 0 0\nv 1 0 0\nv 0 1 0\nvn 0 0 1\nvt 0 0\n"

	tests := []struct {
		name    string
		face    string
		want    FaceIndex
		wantErr error
	}{
		{"full", "f 1/1/1 2/1/1 3/1/1", FaceIndex{Vertex: 2, TexCoord: 0, Normal: 0}, nil},
		{"normal only", "f 1//1 2//1 3//1", FaceIndex{Vertex: 2, TexCoord: -1, Normal: 0}, nil},
		{"vertex and normal", "f 1/1 2/1 3/1", FaceIndex{Vertex: 2, TexCoord: -1, Normal: 0}, nil},
		{"relative", "f -3/-1/-1 -2/-1/-1 -1/-1/-1", FaceIndex{Vertex: 2, TexCoord: 0, Normal: 0}, nil},
		{"vertex only", "f 1 2 3", FaceIndex{}, ErrUnsupportedFaceFormat},
		{"missing normal", "f 1/1/ 2/1/ 3/1/", FaceIndex{}, ErrUnsupportedFaceFormat},
		{"zero index", "f 0//1 2//1 3//1", FaceIndex{}, ErrMalformedLine},
		{"bad index", "f a//1 2//1 3//1", FaceIndex{}, ErrMalformedLine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ParseOBJ(strings.NewReader(header + tt.face + "\n"))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOBJ failed: %v", err)
			}
			if got := obj.Groups[0].Faces[0][0]; got != tt.want {
				t.Errorf("corner = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseOBJ_Topology(t *testing.T) {
	tests := []struct {
		name string
		face string
	}{
		{"quad", "f 1//1 2//1 3//1 4//1"},
		{"line", "f 1//1 2//1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nv 1 1 0\nvn 0 0 1\nusemtl a\n" + tt.face + "\n"
			obj, err := ParseOBJ(strings.NewReader(src))
			if !errors.Is(err, ErrUnsupportedTopology) {
				t.Fatalf("expected ErrUnsupportedTopology, got %v", err)
			}
			if obj != nil {
				t.Error("expected no result on topology error")
			}

			var perr *ParseError
			if !errors.As(err, &perr) || perr.Line != 7 {
				t.Errorf("expected ParseError at line 7, got %v", err)
			}
		})
	}
}

func TestParseOBJ_DefaultGroup(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nvn 0 0 1\nf 1//1 2//1 3//1\n"
	obj, err := ParseOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}
	if len(obj.Groups) != 1 || obj.Groups[0].Material != DefaultMaterial {
		t.Fatalf("expected a single %q group, got %+v", DefaultMaterial, obj.Groups)
	}
}

func TestParseOBJ_IgnoresUnknown(t *testing.T) {
	src := "o thing\ng part\ns off\nv 1 1 1 1\nvp 0.5\nl 1 2\n"
	obj, err := ParseOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}
	if len(obj.Positions) != 1 || len(obj.Groups) != 0 {
		t.Errorf("expected 1 position and no groups, got %d positions, %d groups", len(obj.Positions), len(obj.Groups))
	}
}

func TestParseOBJ_MalformedVertex(t *testing.T) {
	for _, src := range []string{"v 1 2\n", "vn x 0 0\n", "vt 1\n", "usemtl\n", "mtllib\n"} {
		if _, err := ParseOBJ(strings.NewReader(src)); !errors.Is(err, ErrMalformedLine) {
			t.Errorf("ParseOBJ(%q): expected ErrMalformedLine, got %v", src, err)
		}
	}
}

func TestLoadOBJ(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "side.obj")
	if err := os.WriteFile(path, []byte(cubeSideOBJ), 0644); err != nil {
		t.Fatal(err)
	}

	obj, err := LoadOBJ(path)
	if err != nil {
		t.Fatalf("LoadOBJ failed: %v", err)
	}
	if obj.FaceCount() != 3 {
		t.Errorf("FaceCount = %d, want 3", obj.FaceCount())
	}

	_, err = LoadOBJ(filepath.Join(dir, "missing.obj"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
