package model

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/objengine/internal/engine/gpu"
	"github.com/Faultbox/objengine/pkg/formats"
)

// HeapCapacity is the number of descriptors allocated per material heap.
const HeapCapacity = 16

// Material is a named diffuse texture and the descriptor heap that exposes
// it to the pixel shader.
type Material struct {
	Name string
	// TexturePath is the resolved map_Kd path, empty when the material has none.
	TexturePath string

	texture gpu.Texture
	heap    gpu.DescriptorHeap
}

// Texture returns the texture bound in the material's heap.
func (m *Material) Texture() gpu.Texture {
	return m.texture
}

// Bind sets the material's descriptor table on the command list.
func (m *Material) Bind(cl gpu.CommandList) {
	cl.SetDescriptorTable(RootTexture, m.heap)
}

// Release frees the descriptor heap.
func (m *Material) Release() {
	if m.heap != nil {
		m.heap.Release()
		m.heap = nil
	}
}

// install places tex, or the white texture when tex is missing or failed,
// into slot 0 of the heap.
func (m *Material) install(tex gpu.Texture, white gpu.Texture) error {
	if tex == nil || !tex.Valid() {
		tex = white
	}
	m.texture = tex
	return m.heap.SetTexture(0, tex)
}

// newWhiteMaterial creates a material that samples the white texture.
func newWhiteMaterial(svc *Services, name string) (*Material, error) {
	heap, err := svc.Heaps.NewDescriptorHeap(HeapCapacity)
	if err != nil {
		return nil, fmt.Errorf("creating descriptor heap: %w", err)
	}
	m := &Material{Name: name, heap: heap}
	if err := m.install(nil, svc.Textures.WhiteTexture()); err != nil {
		m.Release()
		return nil, err
	}
	return m, nil
}

// loadMaterialLibrary parses an MTL file and creates one material per
// newmtl entry. Texture paths resolve relative to the library's directory.
// Views are installed only after the whole library is read. On error every
// heap created so far is released.
func loadMaterialLibrary(svc *Services, log *zap.Logger, path string, async bool) ([]*Material, error) {
	mtl, err := formats.LoadMTL(path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	mats := make([]*Material, 0, len(mtl.Materials))
	textures := make([]gpu.Texture, 0, len(mtl.Materials))

	fail := func(err error) ([]*Material, error) {
		for _, m := range mats {
			m.Release()
		}
		return nil, err
	}

	for _, def := range mtl.Materials {
		m := &Material{Name: def.Name}

		var tex gpu.Texture
		if def.DiffuseMap != "" {
			m.TexturePath = filepath.Join(dir, filepath.FromSlash(def.DiffuseMap))
			if async {
				tex = svc.Textures.LoadTextureAsync(m.TexturePath)
			} else {
				tex = svc.Textures.LoadTexture(m.TexturePath)
			}
			if !tex.Valid() {
				log.Warn("diffuse map not loaded, using white",
					zap.String("material", def.Name),
					zap.String("path", m.TexturePath))
			}
		}

		heap, err := svc.Heaps.NewDescriptorHeap(HeapCapacity)
		if err != nil {
			return fail(fmt.Errorf("material %q: creating descriptor heap: %w", def.Name, err))
		}
		m.heap = heap

		mats = append(mats, m)
		textures = append(textures, tex)
	}

	white := svc.Textures.WhiteTexture()
	for i, m := range mats {
		if err := m.install(textures[i], white); err != nil {
			return fail(fmt.Errorf("material %q: %w", m.Name, err))
		}
	}

	return mats, nil
}
