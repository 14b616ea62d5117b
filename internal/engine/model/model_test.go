package model

import (
	"encoding/binary"
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/Faultbox/objengine/internal/engine/errcheck"
	"github.com/Faultbox/objengine/internal/engine/gpu"
	"github.com/Faultbox/objengine/internal/engine/gpu/gputest"
	"github.com/Faultbox/objengine/pkg/formats"
	"github.com/Faultbox/objengine/pkg/math"
)

const sceneOBJ = `mtllib scene.mtl
v 1 2 3
v 0 1 0
v 0 0 1
v 1 1 1
vn 1 0 0
vn 0 1 0
vt 0.3 0.8
usemtl textured
f 1/1/1 2/1/1 3/1/2
f 2/1/1 3/1/2 4/1/1
usemtl plain
f 4//2 3//2 1//1
usemtl undefined
f 1//1 2//1 3//1
`

const sceneMTL = `newmtl textured
map_Kd tex/diffuse.png
newmtl plain
Kd 1 1 1
`

const triangleOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
vn 0 0 1
f 1//1 2//1 3//1
`

var testShaders = ShaderPaths{Vertex: "model.vert", Pixel: "model.frag"}

type testEnv struct {
	svc      Services
	device   *gputest.Device
	shaders  *gputest.ShaderLoader
	textures *gputest.TextureLoader
	factory  *gputest.PipelineFactory
	heaps    *gputest.HeapAllocator
	errs     *errcheck.Recorder
	dir      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		device:   gputest.NewDevice(),
		shaders:  &gputest.ShaderLoader{},
		textures: gputest.NewTextureLoader(filepath.Join(dir, "tex", "diffuse.png")),
		factory:  &gputest.PipelineFactory{},
		heaps:    &gputest.HeapAllocator{},
		errs:     &errcheck.Recorder{},
		dir:      dir,
	}
	env.svc = Services{
		Device:    env.device,
		Shaders:   env.shaders,
		Textures:  env.textures,
		Pipelines: env.factory,
		Heaps:     env.heaps,
		Errors:    env.errs,
		Logger:    zap.NewNop(),
	}
	return env
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (e *testEnv) newModel(t *testing.T, maxDraws int) *Model {
	t.Helper()
	m, err := New(e.svc, Options{Name: "test", MaxDrawIndex: maxDraws})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

// readyModel returns a model with geometry, shaders and pipeline loaded.
func (e *testEnv) readyModel(t *testing.T, objSrc string, maxDraws int) *Model {
	t.Helper()
	m := e.newModel(t, maxDraws)
	if err := m.LoadObj(e.write(t, "model.obj", objSrc)); err != nil {
		t.Fatalf("LoadObj failed: %v", err)
	}
	if err := m.LoadShader(testShaders); err != nil {
		t.Fatalf("LoadShader failed: %v", err)
	}
	if err := m.CreateGraphicsPipeline(); err != nil {
		t.Fatalf("CreateGraphicsPipeline failed: %v", err)
	}
	return m
}

func vertexBuffers(d *gputest.Device) []*gputest.Buffer {
	var out []*gputest.Buffer
	for _, b := range d.Buffers {
		if b.Usage == gpu.BufferUsageVertex {
			out = append(out, b)
		}
	}
	return out
}

func floatAt(b []byte, off int) float32 {
	return gomath.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func readVertex(b []byte, i int) Vertex {
	o := i * VertexSize
	return Vertex{
		Position: math.Vec4{floatAt(b, o), floatAt(b, o+4), floatAt(b, o+8), floatAt(b, o+12)},
		Normal:   math.Vec3{X: floatAt(b, o+16), Y: floatAt(b, o+20), Z: floatAt(b, o+24)},
		TexCoord: math.Vec2{X: floatAt(b, o+28), Y: floatAt(b, o+32)},
	}
}

func near(a, b float32) bool {
	d := a - b
	return d > -1e-5 && d < 1e-5
}

func TestLoadObj_Partitions(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "scene.mtl", sceneMTL)
	m := env.newModel(t, 1)

	if err := m.LoadObj(env.write(t, "scene.obj", sceneOBJ)); err != nil {
		t.Fatalf("LoadObj failed: %v", err)
	}

	tests := []struct {
		material string
		faces    int
	}{
		{"textured", 2},
		{"plain", 1},
		{"undefined", 1},
	}

	parts := m.Partitions()
	if len(parts) != len(tests) {
		t.Fatalf("expected %d partitions, got %d", len(tests), len(parts))
	}
	for i, tt := range tests {
		p := parts[i]
		if p.Material != tt.material {
			t.Errorf("partition %d = %q, want %q", i, p.Material, tt.material)
		}
		if p.FaceCount != tt.faces || p.VertexCount != 3*tt.faces {
			t.Errorf("partition %q: faces=%d vertices=%d, want %d and %d",
				p.Material, p.FaceCount, p.VertexCount, tt.faces, 3*tt.faces)
		}
		if p.view.Size != p.VertexCount*VertexSize || p.view.Stride != VertexSize {
			t.Errorf("partition %q view = %+v", p.Material, p.view)
		}
	}

	if got := m.State(); got != ObjLoaded {
		t.Errorf("State = %s, want ObjLoaded", got)
	}
	if env.errs.Len() != 0 {
		t.Errorf("unexpected reports: %+v", env.errs.Reports())
	}
}

func TestLoadObj_VertexData(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "scene.mtl", sceneMTL)
	m := env.newModel(t, 1)
	if err := m.LoadObj(env.write(t, "scene.obj", sceneOBJ)); err != nil {
		t.Fatalf("LoadObj failed: %v", err)
	}

	vbs := vertexBuffers(env.device)
	if len(vbs) != 3 {
		t.Fatalf("expected 3 vertex buffers, got %d", len(vbs))
	}

	// Slot 2 holds the first file corner, 1/1/1.
	v := readVertex(vbs[0].Data, 2)
	if v.Position != (math.Vec4{-1, 2, 3, 1}) {
		t.Errorf("position = %v, want (-1, 2, 3, 1)", v.Position)
	}
	if v.Normal != (math.Vec3{X: -1, Y: 0, Z: 0}) {
		t.Errorf("normal = %v, want (-1, 0, 0)", v.Normal)
	}
	if !near(v.TexCoord.X, 0.3) || !near(v.TexCoord.Y, 0.2) {
		t.Errorf("texcoord = %v, want (0.3, 0.2)", v.TexCoord)
	}

	// 4//2 3//2 1//1 carries no uv.
	v = readVertex(vbs[1].Data, 0)
	if v.TexCoord != (math.Vec2{}) {
		t.Errorf("plain texcoord = %v, want zero", v.TexCoord)
	}

	b := m.Bounds()
	if b.Min != (math.Vec3{X: -1, Y: 0, Z: 0}) || b.Max != (math.Vec3{X: 0, Y: 2, Z: 3}) {
		t.Errorf("bounds = %+v", b)
	}
}

func TestLoadObj_NoTexCoordRecords(t *testing.T) {
	env := newTestEnv(t)
	m := env.newModel(t, 1)

	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nvn 0 0 1\nf 1/1/1 2/1/1 3/1/1\n"
	if err := m.LoadObj(env.write(t, "nouv.obj", src)); err != nil {
		t.Fatalf("LoadObj failed: %v", err)
	}
	v := readVertex(vertexBuffers(env.device)[0].Data, 1)
	if v.TexCoord != (math.Vec2{}) {
		t.Errorf("texcoord = %v, want zero", v.TexCoord)
	}
}

func TestLoadObj_Twice(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "scene.mtl", sceneMTL)
	m := env.newModel(t, 1)
	path := env.write(t, "scene.obj", sceneOBJ)

	if err := m.LoadObj(path); err != nil {
		t.Fatalf("LoadObj failed: %v", err)
	}
	buffers, heaps := len(env.device.Buffers), len(env.heaps.Heaps)

	if err := m.LoadObj(path); err != nil {
		t.Fatalf("second LoadObj failed: %v", err)
	}
	if len(env.device.Buffers) != buffers || len(env.heaps.Heaps) != heaps {
		t.Errorf("second load allocated: buffers %d -> %d, heaps %d -> %d",
			buffers, len(env.device.Buffers), heaps, len(env.heaps.Heaps))
	}
	if len(m.Partitions()) != 3 {
		t.Errorf("expected 3 partitions, got %d", len(m.Partitions()))
	}
}

func TestLoadObj_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{"quad", "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nvn 0 0 1\nusemtl a\nf 1//1 2//1 3//1\nf 1//1 2//1 3//1 4//1\n", formats.ErrUnsupportedTopology},
		{"vertex only", "v 0 0 0\nv 1 0 0\nv 1 1 0\nf 1 2 3\n", formats.ErrUnsupportedFaceFormat},
		{"vertex out of range", "v 0 0 0\nvn 0 0 1\nusemtl a\nf 1//1 1//1 1//1\nusemtl b\nf 1//1 2//1 9//1\n", ErrIndexOutOfRange},
		{"normal out of range", "v 0 0 0\nvn 0 0 1\nf 1//1 1//1 1//2\n", ErrIndexOutOfRange},
		{"texcoord out of range", "v 0 0 0\nvn 0 0 1\nvt 0 0\nf 1/1/1 1/2/1 1/1/1\n", ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			m := env.newModel(t, 2)
			live := env.device.Live()

			err := m.LoadObj(env.write(t, "bad.obj", tt.src))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !env.errs.Has(tt.wantErr) {
				t.Errorf("expected %v to be reported", tt.wantErr)
			}
			if len(m.Partitions()) != 0 {
				t.Errorf("expected no partitions, got %d", len(m.Partitions()))
			}
			if env.device.Live() != live {
				t.Errorf("failed load leaked buffers: %d live, want %d", env.device.Live(), live)
			}
			if m.State() != Unloaded {
				t.Errorf("State = %s, want Unloaded", m.State())
			}
		})
	}
}

func TestLoadObj_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	m := env.newModel(t, 1)

	err := m.LoadObj(filepath.Join(env.dir, "missing.obj"))
	if !errors.Is(err, formats.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if !env.errs.Has(formats.ErrFileNotFound) {
		t.Error("expected missing file to be reported")
	}
	if reports := env.errs.Reports(); reports[0].Source != "test: LoadObj" {
		t.Errorf("report source = %q, want %q", reports[0].Source, "test: LoadObj")
	}
}

func TestLoadObj_MissingMaterialLibrary(t *testing.T) {
	env := newTestEnv(t)
	m := env.newModel(t, 1)

	if err := m.LoadObj(env.write(t, "scene.obj", sceneOBJ)); err != nil {
		t.Fatalf("LoadObj failed: %v", err)
	}
	if !env.errs.Has(formats.ErrFileNotFound) {
		t.Error("expected missing MTL to be reported")
	}
	if len(m.Materials()) != 0 {
		t.Errorf("expected no materials, got %d", len(m.Materials()))
	}

	// Every partition draws with the shared white material.
	for _, p := range m.Partitions() {
		mat := m.materialFor(p)
		if mat == nil || mat.Texture() != env.textures.White {
			t.Errorf("partition %q should use the white fallback", p.Material)
		}
	}
	if len(env.heaps.Heaps) != 1 {
		t.Errorf("expected one fallback heap, got %d", len(env.heaps.Heaps))
	}
}

func TestMaterials(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "scene.mtl", sceneMTL)
	m := env.newModel(t, 1)
	if err := m.LoadObj(env.write(t, "scene.obj", sceneOBJ)); err != nil {
		t.Fatalf("LoadObj failed: %v", err)
	}

	textured := m.Material("textured")
	if textured == nil {
		t.Fatal("textured material missing")
	}
	wantPath := filepath.Join(env.dir, "tex", "diffuse.png")
	if textured.TexturePath != wantPath {
		t.Errorf("TexturePath = %q, want %q", textured.TexturePath, wantPath)
	}
	tex, ok := textured.Texture().(*gputest.Texture)
	if !ok || tex.Path != wantPath || !tex.Valid() {
		t.Errorf("textured texture = %+v", textured.Texture())
	}

	plain := m.Material("plain")
	if plain == nil || plain.Texture() != env.textures.White {
		t.Error("material without map_Kd should use the white texture")
	}

	for _, h := range env.heaps.Heaps {
		if h.Capacity() != HeapCapacity {
			t.Errorf("heap capacity = %d, want %d", h.Capacity(), HeapCapacity)
		}
		if h.Texture(0) == nil {
			t.Error("heap slot 0 is empty")
		}
	}
	if len(env.textures.Requested) != 1 {
		t.Errorf("expected one texture request, got %v", env.textures.Requested)
	}
}

func TestMaterials_InvalidTexture(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "lib.mtl", "newmtl broken\nmap_Kd nowhere.png\n")
	m := env.newModel(t, 1)

	src := "mtllib lib.mtl\nv 0 0 0\nvn 0 0 1\nusemtl broken\nf 1//1 1//1 1//1\n"
	if err := m.LoadObj(env.write(t, "m.obj", src)); err != nil {
		t.Fatalf("LoadObj failed: %v", err)
	}
	if m.Material("broken").Texture() != env.textures.White {
		t.Error("failed texture should be replaced by white")
	}
}

func TestMaterials_Async(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "scene.mtl", sceneMTL)
	m, err := New(env.svc, Options{MaxDrawIndex: 1, AsyncTextures: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.LoadObj(env.write(t, "scene.obj", sceneOBJ)); err != nil {
		t.Fatalf("LoadObj failed: %v", err)
	}

	if len(env.textures.Async) != 1 || len(env.textures.Requested) != 0 {
		t.Errorf("async=%v sync=%v, want one async request", env.textures.Async, env.textures.Requested)
	}
	// A pending texture stays installed; the device substitutes white until it is live.
	if tex := m.Material("textured").Texture(); tex.Ready() || !tex.Valid() {
		t.Errorf("expected a pending valid texture, got %+v", tex)
	}
}

func TestLoadShader_Stages(t *testing.T) {
	tests := []struct {
		name  string
		paths ShaderPaths
		want  []gpu.ShaderStage
	}{
		{"vertex and pixel", testShaders, []gpu.ShaderStage{gpu.StageVertex, gpu.StagePixel}},
		{"geometry", ShaderPaths{Vertex: "v", Pixel: "p", Geometry: "g"},
			[]gpu.ShaderStage{gpu.StageVertex, gpu.StagePixel, gpu.StageGeometry}},
		{"tessellation", ShaderPaths{Vertex: "v", Pixel: "p", Geometry: "g", Hull: "h", Domain: "d"},
			[]gpu.ShaderStage{gpu.StageVertex, gpu.StagePixel, gpu.StageGeometry, gpu.StageHull, gpu.StageDomain}},
		{"hull without geometry", ShaderPaths{Vertex: "v", Pixel: "p", Hull: "h", Domain: "d"},
			[]gpu.ShaderStage{gpu.StageVertex, gpu.StagePixel}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			m := env.newModel(t, 1)

			if err := m.LoadShader(tt.paths); err != nil {
				t.Fatalf("LoadShader failed: %v", err)
			}
			got := env.shaders.Stages()
			if len(got) != len(tt.want) {
				t.Fatalf("stages = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("stage %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
			if m.State() != ShaderLoaded {
				t.Errorf("State = %s, want ShaderLoaded", m.State())
			}

			// Loading again is a no-op.
			if err := m.LoadShader(tt.paths); err != nil {
				t.Fatal(err)
			}
			if len(env.shaders.Loaded) != len(tt.want) {
				t.Errorf("second LoadShader loaded more shaders: %d", len(env.shaders.Loaded))
			}
		})
	}
}

func TestLoadShader_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.shaders.Missing = map[string]bool{"model.frag": true}
	m := env.newModel(t, 1)

	err := m.LoadShader(testShaders)
	if !errors.Is(err, ErrShaderLoad) {
		t.Fatalf("expected ErrShaderLoad, got %v", err)
	}
	if !env.errs.Has(ErrShaderLoad) {
		t.Error("expected shader failure to be reported")
	}
	if !env.shaders.Loaded[0].Released {
		t.Error("vertex shader should be released after pixel shader failure")
	}
	if m.State() != Unloaded {
		t.Errorf("State = %s, want Unloaded", m.State())
	}

	env.shaders.Missing = nil
	if err := m.LoadShader(testShaders); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if m.State() != ShaderLoaded {
		t.Errorf("State = %s, want ShaderLoaded", m.State())
	}
}

func TestCreateGraphicsPipeline_Prerequisites(t *testing.T) {
	env := newTestEnv(t)
	m := env.newModel(t, 1)

	if err := m.LoadObj(env.write(t, "tri.obj", triangleOBJ)); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateGraphicsPipeline(); err != nil {
		t.Errorf("expected no error without shaders, got %v", err)
	}
	if len(env.factory.Descs) != 0 || m.pipeline != nil {
		t.Error("pipeline should not be created without shaders")
	}
	if env.errs.Len() != 0 {
		t.Errorf("missing prerequisite should be silent, got %+v", env.errs.Reports())
	}

	if err := m.LoadShader(testShaders); err != nil {
		t.Fatal(err)
	}
	if m.State() != Loaded {
		t.Errorf("State = %s, want Loaded", m.State())
	}
	if err := m.CreateGraphicsPipeline(); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateGraphicsPipeline(); err != nil {
		t.Fatal(err)
	}
	if len(env.factory.Descs) != 1 {
		t.Errorf("expected one pipeline, got %d", len(env.factory.Descs))
	}
	if m.State() != PipelineReady {
		t.Errorf("State = %s, want PipelineReady", m.State())
	}
}

func TestCreateGraphicsPipeline_Desc(t *testing.T) {
	env := newTestEnv(t)
	env.readyModel(t, triangleOBJ, 1)

	desc := env.factory.Descs[0]
	if len(desc.RootParameters) != 4 {
		t.Fatalf("expected 4 root parameters, got %d", len(desc.RootParameters))
	}

	wantRoots := []struct {
		kind     gpu.RootParameterKind
		register int
		name     string
	}{
		{gpu.RootDescriptorTable, 0, TextureBinding},
		{gpu.RootConstantBuffer, 0, TransformBinding},
		{gpu.RootConstantBuffer, 1, LightingBinding},
		{gpu.RootConstantBuffer, 2, TintBinding},
	}
	for i, w := range wantRoots {
		rp := desc.RootParameters[i]
		if rp.Kind != w.kind || rp.Register != w.register || rp.Name != w.name {
			t.Errorf("root %d = %+v, want %+v", i, rp, w)
		}
	}

	wantOffsets := []int{0, 16, 28}
	for i, in := range desc.Inputs {
		if in.Offset != wantOffsets[i] {
			t.Errorf("input %s offset = %d, want %d", in.Semantic, in.Offset, wantOffsets[i])
		}
	}
	if desc.Stride != VertexSize {
		t.Errorf("stride = %d, want %d", desc.Stride, VertexSize)
	}
	if desc.Blend != gpu.BlendNone || desc.Fill != gpu.FillSolid {
		t.Errorf("blend=%v fill=%v, want none/solid", desc.Blend, desc.Fill)
	}
	if desc.Shaders.Vertex == nil || desc.Shaders.Pixel == nil {
		t.Error("pipeline should carry vertex and pixel shaders")
	}
}

func TestCreateGraphicsPipeline_FactoryError(t *testing.T) {
	env := newTestEnv(t)
	env.factory.Err = errors.New("bad root signature")
	m := env.newModel(t, 1)
	if err := m.LoadObj(env.write(t, "tri.obj", triangleOBJ)); err != nil {
		t.Fatal(err)
	}
	if err := m.LoadShader(testShaders); err != nil {
		t.Fatal(err)
	}

	if err := m.CreateGraphicsPipeline(); err == nil {
		t.Fatal("expected factory error")
	}
	env.factory.Err = nil
	_ = m.CreateGraphicsPipeline()
	if len(env.factory.Descs) != 1 {
		t.Errorf("failed pipeline should not be retried, got %d attempts", len(env.factory.Descs))
	}

	m.Update()
	m.Draw(math.Identity(), math.Vec3{})
	if !env.errs.Has(ErrNullPipeline) {
		t.Error("expected null pipeline report on draw")
	}
}

func TestDraw_BeforePipelinePanics(t *testing.T) {
	env := newTestEnv(t)
	m := env.newModel(t, 1)

	defer func() {
		if recover() == nil {
			t.Error("expected Draw before CreateGraphicsPipeline to panic")
		}
	}()
	m.Draw(math.Identity(), math.Vec3{})
}

func TestDraw_Commands(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "scene.mtl", sceneMTL)
	m := env.readyModel(t, sceneOBJ, 1)

	m.Update()
	m.Draw(math.Identity(), math.Vec3{})

	perPartition := []string{
		"SetPipeline", "SetDescriptorTable", "SetVertexBuffer",
		"SetConstantBuffer", "SetConstantBuffer", "SetConstantBuffer", "DrawInstanced",
	}
	ops := env.device.Commands.Ops()
	if len(ops) != 3*len(perPartition) {
		t.Fatalf("expected %d commands, got %d: %v", 3*len(perPartition), len(ops), ops)
	}
	for i, op := range ops {
		if op != perPartition[i%len(perPartition)] {
			t.Errorf("command %d = %s, want %s", i, op, perPartition[i%len(perPartition)])
		}
	}

	slot := &m.slots.slots[0]
	cbs := env.device.Commands.Filter("SetConstantBuffer")
	wantRoots := []struct {
		root int
		addr uint64
	}{
		{RootTransform, slot.transform.Address()},
		{RootLighting, slot.lighting.Address()},
		{RootTint, slot.tint.Address()},
	}
	for i, w := range wantRoots {
		if cbs[i].RootIndex != w.root || cbs[i].Address != w.addr {
			t.Errorf("constant buffer %d = root %d @%#x, want root %d @%#x",
				i, cbs[i].RootIndex, cbs[i].Address, w.root, w.addr)
		}
	}

	draws := env.device.Commands.Filter("DrawInstanced")
	for i, want := range []int{6, 3, 3} {
		if draws[i].Count != want {
			t.Errorf("draw %d vertex count = %d, want %d", i, draws[i].Count, want)
		}
	}

	tables := env.device.Commands.Filter("SetDescriptorTable")
	if tables[0].Heap != m.Material("textured").heap || tables[2].Heap != m.fallback.heap {
		t.Error("partitions bound the wrong material heaps")
	}
	for _, tb := range tables {
		if tb.RootIndex != RootTexture {
			t.Errorf("descriptor table bound at root %d, want %d", tb.RootIndex, RootTexture)
		}
	}
}

func TestDraw_SlotRotation(t *testing.T) {
	env := newTestEnv(t)
	m := env.readyModel(t, triangleOBJ, 3)

	m.Update()
	for i := 0; i < 4; i++ {
		m.Draw(math.Identity(), math.Vec3{})
	}

	cbs := env.device.Commands.Filter("SetConstantBuffer")
	var got []int
	for _, cb := range cbs {
		if cb.RootIndex != RootTransform {
			continue
		}
		for i := range m.slots.slots {
			if m.slots.slots[i].transform.Address() == cb.Address {
				got = append(got, i)
			}
		}
	}

	want := []int{0, 1, 2, 0}
	if len(got) != len(want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("draw %d used slot %d, want %d", i, got[i], want[i])
		}
	}
	if m.SlotReuses() != 1 {
		t.Errorf("SlotReuses = %d, want 1", m.SlotReuses())
	}

	// A new frame starts at slot 0 again without a reuse.
	env.device.Commands.Reset()
	m.Update()
	m.Draw(math.Identity(), math.Vec3{})
	if addr := env.device.Commands.Filter("SetConstantBuffer")[0].Address; addr != m.slots.slots[0].transform.Address() {
		t.Error("Update should reset the cursor to slot 0")
	}
	if m.SlotReuses() != 1 {
		t.Errorf("SlotReuses = %d, want 1", m.SlotReuses())
	}
}

func TestDraw_NullPipeline(t *testing.T) {
	env := newTestEnv(t)
	env.factory.ReturnNil = true
	m := env.readyModel(t, triangleOBJ, 2)

	m.Update()
	m.Draw(math.Identity(), math.Vec3{})

	if !env.errs.Has(ErrNullPipeline) {
		t.Error("expected ErrNullPipeline report")
	}
	if len(env.device.Commands.Commands) != 0 {
		t.Errorf("expected no commands, got %v", env.device.Commands.Ops())
	}
	if m.slots.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.slots.cursor)
	}
	if m.State() != Loaded {
		t.Errorf("State = %s, want Loaded", m.State())
	}
}

func TestDraw_Constants(t *testing.T) {
	env := newTestEnv(t)
	m := env.readyModel(t, triangleOBJ, 1)
	m.Position = math.Vec3{X: 1, Y: 2, Z: 3}
	m.Color = 0xff000080

	vp := math.Translate(7, 8, 9)
	eye := math.Vec3{X: 4, Y: 5, Z: 6}

	m.Update()
	m.Draw(vp, eye)

	slot := &m.slots.slots[0]
	tb := env.device.Buffer(slot.transform.Address()).Data

	// World is stored transposed: translation lands in row 3 (elements 3, 7, 11).
	if floatAt(tb, 3*4) != 1 || floatAt(tb, 7*4) != 2 || floatAt(tb, 11*4) != 3 {
		t.Errorf("world translation not stored transposed: %v %v %v",
			floatAt(tb, 12), floatAt(tb, 28), floatAt(tb, 44))
	}
	// View-projection is stored as given.
	if floatAt(tb, 64+12*4) != 7 || floatAt(tb, 64+13*4) != 8 || floatAt(tb, 64+14*4) != 9 {
		t.Error("view-projection should be stored verbatim")
	}

	lb := env.device.Buffer(slot.lighting.Address()).Data
	if floatAt(lb, 32) != 4 || floatAt(lb, 36) != 5 || floatAt(lb, 40) != 6 {
		t.Errorf("eye position = (%v, %v, %v), want (4, 5, 6)", floatAt(lb, 32), floatAt(lb, 36), floatAt(lb, 40))
	}
	if floatAt(lb, 76) != 10 {
		t.Errorf("point range = %v, want 10", floatAt(lb, 76))
	}

	cb := env.device.Buffer(slot.tint.Address()).Data
	if floatAt(cb, 0) != 1 || floatAt(cb, 4) != 0 || !near(floatAt(cb, 12), 128.0/255.0) {
		t.Errorf("tint = (%v, %v, %v, %v)", floatAt(cb, 0), floatAt(cb, 4), floatAt(cb, 8), floatAt(cb, 12))
	}

	if size := env.device.Buffer(slot.transform.Address()).Size(); size != constantAlignment {
		t.Errorf("constant buffer size = %d, want %d", size, constantAlignment)
	}
}

func TestDraw_Parent(t *testing.T) {
	env := newTestEnv(t)
	parent := env.readyModel(t, triangleOBJ, 1)
	child := env.readyModel(t, triangleOBJ, 1)

	parent.Position = math.Vec3{X: 10}
	child.Position = math.Vec3{Y: 1}
	child.SetParent(parent)

	parent.Update()
	child.Update()
	parent.Draw(math.Identity(), math.Vec3{})
	child.Draw(math.Identity(), math.Vec3{})

	p := child.World().TransformVec3(math.Vec3{})
	if p != (math.Vec3{X: 10, Y: 1}) {
		t.Errorf("child origin = %v, want (10, 1, 0)", p)
	}

	child.SetParent(nil)
	child.Update()
	child.Draw(math.Identity(), math.Vec3{})
	if p := child.World().TransformVec3(math.Vec3{}); p != (math.Vec3{Y: 1}) {
		t.Errorf("detached child origin = %v, want (0, 1, 0)", p)
	}
}

func TestNew_ClampsMaxDrawIndex(t *testing.T) {
	env := newTestEnv(t)
	m := env.newModel(t, 0)
	if m.MaxDrawIndex() != 1 {
		t.Errorf("MaxDrawIndex = %d, want 1", m.MaxDrawIndex())
	}
	if len(env.device.Buffers) != 3 {
		t.Errorf("expected 3 constant buffers, got %d", len(env.device.Buffers))
	}
}

func TestNew_AllocationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.device.FailAfter = 4

	if _, err := New(env.svc, Options{MaxDrawIndex: 2}); err == nil {
		t.Fatal("expected allocation failure")
	}
	if env.device.Live() != 0 {
		t.Errorf("failed New leaked %d buffers", env.device.Live())
	}
}

func TestRelease(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "scene.mtl", sceneMTL)
	m := env.readyModel(t, sceneOBJ, 2)

	m.Release()

	if env.device.Live() != 0 {
		t.Errorf("%d buffers still live", env.device.Live())
	}
	for i, h := range env.heaps.Heaps {
		if !h.Released {
			t.Errorf("heap %d not released", i)
		}
	}
	for _, s := range env.shaders.Loaded {
		if !s.Released {
			t.Errorf("%s shader not released", s.Kind)
		}
	}
	if !env.factory.Created[0].Released {
		t.Error("pipeline not released")
	}
	if m.State() != Unloaded {
		t.Errorf("State = %s, want Unloaded", m.State())
	}
}
