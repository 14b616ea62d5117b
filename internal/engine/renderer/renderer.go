// Package renderer owns the OpenGL context state and the GPU services models
// are built on.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/objengine/internal/engine/errcheck"
	"github.com/Faultbox/objengine/internal/engine/gpu/opengl"
	"github.com/Faultbox/objengine/internal/engine/model"
	"github.com/Faultbox/objengine/internal/engine/texture"
	"github.com/Faultbox/objengine/internal/logger"
	"github.com/Faultbox/objengine/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width          int
	Height         int
	ClearColor     uint32 // 0xRRGGBBAA
	MaxTextureSize int
	ErrorDialogs   bool
}

// Renderer handles frame setup and owns the GL backend.
type Renderer struct {
	config Config
	clear  math.Vec4
	log    *zap.Logger

	device    *opengl.Device
	textures  *texture.Manager
	pipelines opengl.PipelineFactory
	errors    errcheck.Reporter

	// Textures uploaded by ProcessPending during the last Begin
	uploaded int
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config: cfg,
		clear:  math.ColorFromUint(cfg.ClearColor),
		log:    logger.Named("renderer"),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	rendererName := gl.GoStr(gl.GetString(gl.RENDERER))
	r.log.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", rendererName),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	r.device = opengl.NewDevice()
	r.pipelines = opengl.PipelineFactory{Log: r.log}
	r.errors = errcheck.NewLogReporter(logger.Named("errors"), cfg.ErrorDialogs)

	var anisotropy float32
	gl.GetFloatv(gl.MAX_TEXTURE_MAX_ANISOTROPY, &anisotropy)
	textures, err := texture.NewManager(opengl.TextureUploader{Anisotropy: anisotropy}, logger.Named("texture"), cfg.MaxTextureSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create texture manager: %w", err)
	}
	r.textures = textures

	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Services returns the collaborators for model.New.
func (r *Renderer) Services() model.Services {
	return model.Services{
		Device:    r.device,
		Shaders:   opengl.ShaderLoader{},
		Textures:  r.textures,
		Pipelines: r.pipelines,
		Heaps:     opengl.HeapAllocator{},
		Errors:    r.errors,
		Logger:    logger.Named("model"),
	}
}

// Textures returns the texture manager.
func (r *Renderer) Textures() *texture.Manager {
	return r.textures
}

// Errors returns the reporter models log load failures to.
func (r *Renderer) Errors() errcheck.Reporter {
	return r.errors
}

// Close cleans up renderer resources. Models must be released first.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	r.textures.Release()
	if n := r.device.LiveBuffers(); n > 0 {
		r.log.Warn("buffers still alive at shutdown", zap.Int("count", n))
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// SetClearColor sets the background color.
func (r *Renderer) SetClearColor(c uint32) {
	r.clear = math.ColorFromUint(c)
}

// Begin starts a new frame: uploads finished async textures, forgets cached
// command state and clears the target.
func (r *Renderer) Begin() {
	r.uploaded = r.textures.ProcessPending()
	r.device.Commands().Reset()

	gl.ClearColor(r.clear[0], r.clear[1], r.clear[2], r.clear[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// End finishes the current frame.
func (r *Renderer) End() {
	gl.BindVertexArray(0)
	gl.UseProgram(0)
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
}

// Stats returns per-frame counters.
func (r *Renderer) Stats() Stats {
	cached, pending := r.textures.Stats()
	return Stats{
		DrawCalls:       r.device.Commands().Draws(),
		Buffers:         r.device.LiveBuffers(),
		Textures:        cached,
		PendingTextures: pending,
		Uploaded:        r.uploaded,
	}
}

// Stats are counters for the overlay.
type Stats struct {
	DrawCalls       int
	Buffers         int
	Textures        int
	PendingTextures int
	Uploaded        int
}
