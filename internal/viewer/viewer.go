// Package viewer implements the standalone model viewer loop.
package viewer

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/objengine/internal/config"
	"github.com/Faultbox/objengine/internal/engine/audio"
	"github.com/Faultbox/objengine/internal/engine/camera"
	"github.com/Faultbox/objengine/internal/engine/input"
	"github.com/Faultbox/objengine/internal/engine/model"
	"github.com/Faultbox/objengine/internal/engine/renderer"
	"github.com/Faultbox/objengine/internal/engine/window"
	"github.com/Faultbox/objengine/internal/logger"
	"github.com/Faultbox/objengine/pkg/math"
)

const title = "objviewer"

// Viewer is the main viewer instance.
type Viewer struct {
	cfg      *config.Config
	running  bool
	log      *zap.Logger
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	audio    *audio.Manager
	model    *model.Model
	offsets  []math.Vec3
}

// New creates the window, renderer and scene.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg:    cfg,
		log:    logger.Named("viewer"),
		input:  input.New(),
		camera: camera.NewOrbitCamera(),
	}
	v.log.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.String("model", cfg.Scene.Model),
	)

	// Create window (this also creates OpenGL context)
	var err error
	v.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	width, height := v.window.GetSize()
	v.renderer, err = renderer.New(renderer.Config{
		Width:          width,
		Height:         height,
		ClearColor:     cfg.Graphics.ClearColor,
		MaxTextureSize: cfg.Render.MaxTextureSize,
		ErrorDialogs:   cfg.Debug.ErrorDialogs,
	})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	v.camera.SetViewport(width, height)

	if cfg.Scene.Model != "" {
		v.loadModel(cfg.Scene.Model)
	}
	v.startAudio()

	v.log.Info("viewer initialized")
	return v, nil
}

func (v *Viewer) loadModel(path string) {
	m, err := LoadModel(v.renderer.Services(), v.cfg, path)
	if m == nil {
		v.log.Error("failed to create model", zap.Error(err))
		return
	}
	if err != nil {
		// Already reported through the renderer's error reporter.
		v.log.Debug("model not drawable", zap.String("state", m.State().String()))
	}
	v.model = m

	b := m.Bounds()
	v.offsets = InstanceOffsets(v.cfg.Scene.Instances, b.Radius())
	span := b.Radius() * float32(len(v.offsets))
	v.camera.FitToSphere(b.Center().Add(m.Position), span)
	v.window.SetTitle(fmt.Sprintf("%s - %s", title, m.Name()))
}

func (v *Viewer) startAudio() {
	if v.cfg.Audio.BGM == "" {
		return
	}
	v.audio = audio.New()
	if err := v.audio.Init(); err != nil {
		v.log.Warn("audio disabled", zap.Error(err))
		v.audio = nil
		return
	}
	v.audio.SetVolume(float64(v.cfg.Audio.Volume))
	v.audio.SetMuted(v.cfg.Audio.Muted)
	if err := v.audio.PlayBGMFile(v.cfg.Audio.BGM, true); err != nil {
		v.log.Warn("failed to play bgm", zap.String("path", v.cfg.Audio.BGM), zap.Error(err))
	}
}

// Run starts the frame loop and returns when the window is closed.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	fps := NewFPSCounter(time.Second, lastTime)
	budget := frameBudget(v.cfg.Graphics.FPSLimit)

	v.log.Info("starting frame loop")

	for v.running {
		frameStart := time.Now()
		dt := frameStart.Sub(lastTime).Seconds()
		lastTime = frameStart

		if v.input.Update() || v.input.QuitRequested() {
			v.running = false
			break
		}
		v.handleInput()

		v.render()
		v.window.SwapBuffers()

		if fps.Frame(time.Now()) {
			v.window.SetTitle(fmt.Sprintf("%s - %.0f fps", title, fps.FPS()))
			v.log.Debug("fps",
				zap.Float32("fps", fps.FPS()),
				zap.String("dt", fmt.Sprintf("%.2fms", dt*1000)),
				zap.Int("draws", v.renderer.Stats().DrawCalls),
			)
		}

		if budget > 0 {
			if spare := budget - time.Since(frameStart); spare > 0 {
				time.Sleep(spare)
			}
		}
	}

	return nil
}

func (v *Viewer) handleInput() {
	for _, event := range v.input.Events() {
		if event.Type == input.EventWindowResize {
			width, height := v.window.GetSize()
			v.renderer.Resize(width, height)
			v.camera.SetViewport(width, height)
		}
	}

	if v.input.FullscreenRequested() {
		if err := v.window.ToggleFullscreen(); err != nil {
			v.log.Warn("fullscreen toggle failed", zap.Error(err))
		}
	}

	if dx, dy := v.input.Drag(sdl.BUTTON_LEFT); dx != 0 || dy != 0 {
		v.camera.HandleDrag(float32(dx), float32(dy))
	}
	if w := v.input.Wheel(); w != 0 {
		v.camera.HandleZoom(w)
	}
}

func (v *Viewer) render() {
	v.renderer.Begin()
	defer v.renderer.End()

	if v.model == nil || v.model.State() != model.PipelineReady {
		return
	}

	v.model.Update()
	vp := v.camera.ViewProjection()
	eye := v.camera.Position()

	base := v.model.Position
	for _, off := range v.offsets {
		v.model.Position = base.Add(off)
		v.model.Draw(vp, eye)
	}
	v.model.Position = base
}

// Close releases the scene, renderer and window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.audio != nil {
		v.audio.Close()
	}
	if v.model != nil {
		v.model.Release()
	}
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}
