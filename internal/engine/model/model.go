package model

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/objengine/internal/engine/errcheck"
	"github.com/Faultbox/objengine/internal/engine/gpu"
	"github.com/Faultbox/objengine/internal/engine/lighting"
	"github.com/Faultbox/objengine/internal/logger"
	"github.com/Faultbox/objengine/pkg/formats"
	"github.com/Faultbox/objengine/pkg/math"
)

// fallbackMaterial names the white material used by partitions whose
// usemtl name has no MTL definition.
const fallbackMaterial = "<white>"

// Model is an OBJ mesh with its materials, pipeline and per-draw constants.
//
// A model is used from the render thread only. Call Update once per frame
// and Draw once per visible instance; more than MaxDrawIndex draws in one
// frame reuse constant slots the GPU may not have consumed yet.
type Model struct {
	// Transform and appearance, read on every Draw.
	Position math.Vec3
	Rotation math.Vec3 // radians, applied X then Y then Z
	Scale    math.Vec3
	Color    uint32 // 0xRRGGBBAA tint
	Light    lighting.Params

	svc  Services
	opts Options
	log  *zap.Logger

	partitions []*Partition
	materials  map[string]*Material
	matOrder   []*Material
	fallback   *Material
	bounds     Bounds

	shaders  gpu.ShaderSet
	pipeline gpu.Pipeline

	objLoaded       bool
	shaderLoaded    bool
	pipelineCreated bool

	slots       *slotRing
	parent      *Model
	latestWorld math.Mat4
}

// New creates an empty model and allocates its constant slots.
func New(svc Services, opts Options) (*Model, error) {
	if opts.MaxDrawIndex < 1 {
		opts.MaxDrawIndex = 1
	}
	if svc.Errors == nil {
		svc.Errors = errcheck.Discard
	}
	log := svc.Logger
	if log == nil {
		log = logger.Named("model")
	}
	if opts.Name != "" {
		log = log.With(zap.String("model", opts.Name))
	}

	slots, err := newSlotRing(svc.Device, opts.MaxDrawIndex)
	if err != nil {
		return nil, fmt.Errorf("allocating constant slots: %w", err)
	}

	return &Model{
		Scale:       math.Vec3{X: 1, Y: 1, Z: 1},
		Color:       0xffffffff,
		Light:       lighting.Defaults(),
		svc:         svc,
		opts:        opts,
		log:         log,
		materials:   make(map[string]*Material),
		slots:       slots,
		latestWorld: math.Identity(),
	}, nil
}

// LoadObj loads geometry and the material libraries it references. It runs
// at most once; later calls return nil. A missing material library is
// reported and the model falls back to white materials. On any other error
// nothing is kept.
func (m *Model) LoadObj(path string) error {
	if m.objLoaded {
		return nil
	}

	obj, err := formats.LoadOBJ(path)
	if err != nil {
		m.report("LoadObj", err)
		return err
	}

	var mats []*Material
	cleanup := func() {
		for _, mat := range mats {
			mat.Release()
		}
	}

	dir := filepath.Dir(path)
	for _, lib := range obj.MaterialLibs {
		libPath := filepath.Join(dir, filepath.FromSlash(lib))
		loaded, err := loadMaterialLibrary(&m.svc, m.log, libPath, m.opts.AsyncTextures)
		if err != nil {
			m.report("LoadMtl", err)
			continue
		}
		mats = append(mats, loaded...)
	}

	parts, bounds, err := buildPartitions(m.svc.Device, obj)
	if err != nil {
		cleanup()
		m.report("LoadObj", err)
		return err
	}

	byName := make(map[string]*Material, len(mats))
	order := make([]*Material, 0, len(mats))
	for _, mat := range mats {
		if prev, ok := byName[mat.Name]; ok {
			// A later library redefines the material.
			prev.Release()
			for i := range order {
				if order[i] == prev {
					order = append(order[:i], order[i+1:]...)
					break
				}
			}
		}
		byName[mat.Name] = mat
		order = append(order, mat)
	}

	var fallback *Material
	for _, p := range parts {
		if _, ok := byName[p.Material]; ok {
			continue
		}
		m.log.Debug("partition has no material, drawing white", zap.String("partition", p.Material))
		if fallback == nil {
			if fallback, err = newWhiteMaterial(&m.svc, fallbackMaterial); err != nil {
				for _, p := range parts {
					p.Release()
				}
				cleanup()
				err = fmt.Errorf("fallback material: %w", err)
				m.report("LoadObj", err)
				return err
			}
		}
	}

	m.partitions = parts
	m.materials = byName
	m.matOrder = order
	m.fallback = fallback
	m.bounds = bounds
	m.objLoaded = true

	m.log.Info("model loaded",
		zap.String("path", path),
		zap.Int("partitions", len(parts)),
		zap.Int("materials", len(order)),
		zap.Int("faces", obj.FaceCount()))
	return nil
}

// SetParent makes the model's world transform relative to parent's most
// recent draw. Pass nil to detach.
func (m *Model) SetParent(parent *Model) {
	m.parent = parent
}

// Update starts a new frame: the next Draw uses slot 0.
func (m *Model) Update() {
	m.slots.reset()
}

// Draw records one instance of the model with the given camera.
//
// Draw panics if CreateGraphicsPipeline has not run. If the pipeline could
// not be created, ErrNullPipeline is reported, nothing is recorded and the
// slot is still consumed.
func (m *Model) Draw(viewProjection math.Mat4, cameraPos math.Vec3) {
	if !m.pipelineCreated {
		panic("model: Draw called before CreateGraphicsPipeline")
	}

	slot, index, wrapped := m.slots.acquire()
	if wrapped {
		m.log.Debug("constant slots reused within a frame",
			zap.Int("max_draw_index", len(m.slots.slots)),
			zap.Int("reuses", m.slots.reuses))
	}
	defer m.slots.advance()

	world := math.Affine(m.Scale, m.Rotation, m.Position)
	if m.parent != nil {
		world = m.parent.latestWorld.Mul(world)
	}
	m.latestWorld = world

	slot.transform.Data = WorldViewProjection{
		World:          world.Transpose(),
		ViewProjection: viewProjection,
	}
	slot.lighting.Data = newLighting(m.Light, cameraPos)
	slot.tint.Data = Tint{Color: math.ColorFromUint(m.Color)}
	slot.flush()

	if m.pipeline == nil {
		m.report("Draw", fmt.Errorf("%w (slot %d)", ErrNullPipeline, index))
		return
	}

	cl := m.svc.Device.CommandList()
	for _, p := range m.partitions {
		cl.SetPipeline(m.pipeline)
		m.materialFor(p).Bind(cl)
		cl.SetVertexBuffer(p.view)
		cl.SetConstantBuffer(RootTransform, slot.transform.Address())
		cl.SetConstantBuffer(RootLighting, slot.lighting.Address())
		cl.SetConstantBuffer(RootTint, slot.tint.Address())
		cl.DrawInstanced(p.VertexCount, 1, 0, 0)
	}
}

func (m *Model) materialFor(p *Partition) *Material {
	if mat, ok := m.materials[p.Material]; ok {
		return mat
	}
	return m.fallback
}

// State reports how far loading has progressed.
func (m *Model) State() State {
	switch {
	case m.pipeline != nil:
		return PipelineReady
	case m.objLoaded && m.shaderLoaded:
		return Loaded
	case m.objLoaded:
		return ObjLoaded
	case m.shaderLoaded:
		return ShaderLoaded
	default:
		return Unloaded
	}
}

// Name returns the configured model name.
func (m *Model) Name() string { return m.opts.Name }

// Partitions returns the material partitions in first-use order.
func (m *Model) Partitions() []*Partition { return m.partitions }

// Materials returns the materials in declaration order.
func (m *Model) Materials() []*Material { return m.matOrder }

// Material returns the material with the given name, or nil.
func (m *Model) Material(name string) *Material { return m.materials[name] }

// Bounds returns the object-space bounding box of the loaded geometry.
func (m *Model) Bounds() Bounds { return m.bounds }

// MaxDrawIndex returns the number of constant slots.
func (m *Model) MaxDrawIndex() int { return len(m.slots.slots) }

// SlotReuses returns how many draws wrapped the slot cursor since creation.
func (m *Model) SlotReuses() int { return m.slots.reuses }

// World returns the world matrix of the most recent draw.
func (m *Model) World() math.Mat4 { return m.latestWorld }

// Release frees every GPU resource the model owns. The model must not be
// used afterwards.
func (m *Model) Release() {
	for _, p := range m.partitions {
		p.Release()
	}
	for _, mat := range m.matOrder {
		mat.Release()
	}
	if m.fallback != nil {
		m.fallback.Release()
	}
	releaseShaders(&m.shaders)
	if m.pipeline != nil {
		m.pipeline.Release()
	}
	m.slots.release()

	m.partitions = nil
	m.materials = map[string]*Material{}
	m.matOrder = nil
	m.fallback = nil
	m.pipeline = nil
	m.objLoaded, m.shaderLoaded, m.pipelineCreated = false, false, false
}

func (m *Model) report(source string, err error) {
	name := source
	if m.opts.Name != "" {
		name = m.opts.Name + ": " + source
	}
	m.svc.Errors.Report(name, err)
}
