package texture

import (
	"image"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/objengine/internal/engine/gpu"
)

// maxDecoders bounds concurrent background decodes.
const maxDecoders = 4

// Uploader creates GPU textures. It is only called from the render thread.
type Uploader interface {
	Upload(img *image.RGBA) (uint32, error)
	Delete(id uint32)
}

// Texture is a texture owned by a Manager. Until an async load completes
// ID returns the white texture.
type Texture struct {
	path    string
	id      uint32
	width   int
	height  int
	failed  bool
	pending bool
	white   *Texture
}

// Path returns the source file, empty for the white texture.
func (t *Texture) Path() string { return t.path }

// Valid is false once loading has failed.
func (t *Texture) Valid() bool { return !t.failed }

// Ready is false while an async load is still pending.
func (t *Texture) Ready() bool { return !t.pending }

// Size returns the texture size in pixels.
func (t *Texture) Size() (width, height int) { return t.width, t.height }

// ID returns the GPU texture name to bind: the texture itself once it is
// live, the white texture otherwise.
func (t *Texture) ID() uint32 {
	if t.pending || t.failed {
		if t.white != nil {
			return t.white.id
		}
	}
	return t.id
}

type decoded struct {
	tex *Texture
	img *image.RGBA
	err error
}

// Manager loads and caches textures by path. LoadTexture decodes and
// uploads immediately. LoadTextureAsync decodes on a background goroutine
// and uploads during ProcessPending, which must be called on the render
// thread once per frame.
type Manager struct {
	up      Uploader
	log     *zap.Logger
	maxSize int

	white *Texture

	mu      sync.Mutex
	cache   map[string]*Texture
	pending []decoded
	sem     chan struct{}
	wg      sync.WaitGroup
}

// NewManager creates a manager and uploads its white texture. maxSize
// limits texture dimensions (0 = unlimited).
func NewManager(up Uploader, log *zap.Logger, maxSize int) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		up:      up,
		log:     log,
		maxSize: maxSize,
		cache:   make(map[string]*Texture),
		sem:     make(chan struct{}, maxDecoders),
	}

	id, err := up.Upload(White())
	if err != nil {
		return nil, err
	}
	m.white = &Texture{id: id, width: 1, height: 1}
	return m, nil
}

// WhiteTexture returns the shared 1x1 white texture.
func (m *Manager) WhiteTexture() gpu.Texture {
	return m.white
}

// White returns the white texture as a concrete *Texture.
func (m *Manager) White() *Texture {
	return m.white
}

// LoadTexture loads a texture synchronously. Failures are logged and
// return a texture that reports !Valid().
func (m *Manager) LoadTexture(path string) gpu.Texture {
	m.mu.Lock()
	if t, ok := m.cache[path]; ok {
		m.mu.Unlock()
		return t
	}
	t := &Texture{path: path, white: m.white}
	m.cache[path] = t
	m.mu.Unlock()

	img, err := LoadImage(path, m.maxSize)
	m.finish(decoded{tex: t, img: img, err: err})
	return t
}

// LoadTextureAsync starts a background load and returns a pending texture.
func (m *Manager) LoadTextureAsync(path string) gpu.Texture {
	m.mu.Lock()
	if t, ok := m.cache[path]; ok {
		m.mu.Unlock()
		return t
	}
	t := &Texture{path: path, white: m.white, pending: true}
	m.cache[path] = t
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.sem <- struct{}{}
		img, err := LoadImage(path, m.maxSize)
		<-m.sem

		m.mu.Lock()
		m.pending = append(m.pending, decoded{tex: t, img: img, err: err})
		m.mu.Unlock()
	}()
	return t
}

// ProcessPending uploads textures whose background decode has finished.
// It returns the number of textures processed.
func (m *Manager) ProcessPending() int {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, d := range batch {
		m.finish(d)
	}
	return len(batch)
}

// Wait blocks until every background decode has finished. The results
// still need ProcessPending.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// finish uploads a decoded image or marks the texture failed.
func (m *Manager) finish(d decoded) {
	t := d.tex
	t.pending = false

	if d.err != nil {
		t.failed = true
		m.log.Warn("texture load failed", zap.String("path", t.path), zap.Error(d.err))
		return
	}

	id, err := m.up.Upload(d.img)
	if err != nil {
		t.failed = true
		m.log.Warn("texture upload failed", zap.String("path", t.path), zap.Error(err))
		return
	}

	t.id = id
	t.width, t.height = d.img.Rect.Dx(), d.img.Rect.Dy()
	m.log.Debug("texture loaded",
		zap.String("path", t.path),
		zap.Int("width", t.width),
		zap.Int("height", t.height))
}

// Stats reports cache size and textures still waiting for upload.
func (m *Manager) Stats() (cached, pending int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.cache {
		if t.pending {
			pending++
		}
	}
	return len(m.cache), pending
}

// Release waits for background decodes and deletes every uploaded texture.
func (m *Manager) Release() {
	m.Wait()
	m.ProcessPending()

	m.mu.Lock()
	defer m.mu.Unlock()
	for path, t := range m.cache {
		if t.id != 0 {
			m.up.Delete(t.id)
		}
		delete(m.cache, path)
	}
	if m.white != nil && m.white.id != 0 {
		m.up.Delete(m.white.id)
		m.white.id = 0
	}
}
