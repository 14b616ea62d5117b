// objinspect hosts a model in an ImGui window with a live property
// inspector.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/objengine/internal/config"
	"github.com/Faultbox/objengine/internal/engine/camera"
	"github.com/Faultbox/objengine/internal/engine/debug"
	"github.com/Faultbox/objengine/internal/engine/framebuffer"
	"github.com/Faultbox/objengine/internal/engine/model"
	"github.com/Faultbox/objengine/internal/engine/renderer"
	"github.com/Faultbox/objengine/internal/engine/ui"
	"github.com/Faultbox/objengine/internal/logger"
	"github.com/Faultbox/objengine/internal/viewer"
)

const windowTitle = "objinspect"

func main() {
	runtime.LockOSThread()

	config.ParseFlags()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	app, err := NewApp(cfg)
	if err != nil {
		logger.Error("failed to start", zap.Error(err))
		os.Exit(1)
	}
	defer app.Close()

	if cfg.Scene.Model != "" {
		app.Open(cfg.Scene.Model)
	}
	app.Run()
}

// App is the inspector application state.
type App struct {
	cfg      *config.Config
	log      *zap.Logger
	backend  *ui.Backend
	renderer *renderer.Renderer
	fb       *framebuffer.Framebuffer
	camera   *camera.OrbitCamera
	model    *model.Model
	path     string
	inspect  *ui.ModelInspector
	shots    *debug.ScreenshotCapture
	fps      *viewer.FPSCounter

	// Set by the file dialog goroutine, consumed on the render thread
	pendingPath chan string

	status     string
	statusTime time.Time
	lastMouse  imgui.Vec2
}

// NewApp creates the window, GL services and offscreen target.
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		cfg:         cfg,
		log:         logger.Named("objinspect"),
		camera:      camera.NewOrbitCamera(),
		inspect:     ui.NewModelInspector(nil),
		shots:       debug.NewScreenshotCapture("screenshots", "objinspect"),
		fps:         viewer.NewFPSCounter(time.Second/2, time.Now()),
		pendingPath: make(chan string, 1),
	}

	var err error
	app.backend, err = ui.NewBackend(windowTitle, int32(cfg.Graphics.Width), int32(cfg.Graphics.Height), cfg.Graphics.ClearColor, cfg.Debug.Font)
	if err != nil {
		return nil, err
	}

	app.renderer, err = renderer.New(renderer.Config{
		Width:          cfg.Graphics.Width,
		Height:         cfg.Graphics.Height,
		ClearColor:     cfg.Graphics.ClearColor,
		MaxTextureSize: cfg.Render.MaxTextureSize,
		ErrorDialogs:   cfg.Debug.ErrorDialogs,
	})
	if err != nil {
		return nil, err
	}

	app.fb, err = framebuffer.New(int32(cfg.Graphics.Width), int32(cfg.Graphics.Height))
	if err != nil {
		app.renderer.Close()
		return nil, err
	}
	return app, nil
}

// Run starts the ImGui loop.
func (app *App) Run() {
	app.backend.Run(app.render)
}

// Close releases the model and GL resources.
func (app *App) Close() {
	if app.model != nil {
		app.model.Release()
	}
	if app.fb != nil {
		app.fb.Destroy()
	}
	if app.renderer != nil {
		app.renderer.Close()
	}
}

// Open replaces the current model.
func (app *App) Open(path string) {
	m, err := viewer.LoadModel(app.renderer.Services(), app.cfg, path)
	if m == nil {
		app.setStatus(fmt.Sprintf("Failed: %v", err))
		return
	}
	if err != nil {
		app.setStatus(fmt.Sprintf("Loaded with errors: %v", err))
	} else {
		app.setStatus(fmt.Sprintf("Loaded %s", filepath.Base(path)))
	}

	if app.model != nil {
		app.model.Release()
	}
	app.model = m
	app.path = path
	app.inspect.SetTarget(m)
	app.camera.FitToSphere(m.Bounds().Center().Add(m.Position), m.Bounds().Radius())
	app.backend.SetWindowTitle(fmt.Sprintf("%s - %s", windowTitle, filepath.Base(path)))
}

func (app *App) openFileDialog() {
	// The dialog blocks, so it runs off the render thread.
	go func() {
		filename, err := dialog.File().
			Filter("Wavefront OBJ", "obj").
			Filter("All Files", "*").
			Title("Open Model").
			Load()
		if err != nil {
			if err != dialog.ErrCancelled {
				app.log.Warn("file dialog error", zap.Error(err))
			}
			return
		}
		select {
		case app.pendingPath <- filename:
		default:
		}
	}()
}

func (app *App) setStatus(msg string) {
	app.status = msg
	app.statusTime = time.Now()
	app.log.Info(msg)
}

func (app *App) render() {
	select {
	case path := <-app.pendingPath:
		app.Open(path)
	default:
	}

	ctrlO := imgui.KeyChord(imgui.ModCtrl) | imgui.KeyChord(imgui.KeyO)
	if imgui.IsKeyChordPressed(ctrlO) {
		app.openFileDialog()
	}
	ctrlS := imgui.KeyChord(imgui.ModCtrl) | imgui.KeyChord(imgui.KeyS)
	if imgui.IsKeyChordPressed(ctrlS) {
		app.saveScene()
	}
	if ui.IsKeyPressed(imgui.KeyF12) {
		app.screenshot()
	}

	app.fps.Frame(time.Now())
	app.renderScene()

	x, y, w, h := app.backend.GetViewport()
	app.drawViewport(x, y, w, h)
	app.inspect.Draw()

	if app.cfg.Debug.Overlay {
		stats := ui.OverlayStats{FPS: app.fps.FPS(), Renderer: app.renderer.Stats()}
		if app.model != nil {
			stats.Partitions = len(app.model.Partitions())
			stats.SlotReuses = app.model.SlotReuses()
		}
		ui.DrawOverlay(stats)
	}
}

// renderScene draws the model into the offscreen framebuffer.
func (app *App) renderScene() {
	restore := app.fb.Use()
	defer restore()

	app.renderer.Begin()
	defer app.renderer.End()

	if app.model == nil || app.model.State() != model.PipelineReady {
		return
	}
	w, h := app.fb.Size()
	app.camera.SetViewport(int(w), int(h))

	app.model.Update()
	app.model.Draw(app.camera.ViewProjection(), app.camera.Position())
}

func (app *App) drawViewport(x, y, w, h float32) {
	flags := imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize | imgui.WindowFlagsNoCollapse |
		imgui.WindowFlagsNoBringToFrontOnFocus
	imgui.SetNextWindowPos(imgui.NewVec2(x, y))
	imgui.SetNextWindowSize(imgui.NewVec2(w, h))
	if imgui.BeginV("Viewport", nil, flags) {
		if imgui.Button("Open...") {
			app.openFileDialog()
		}
		imgui.SameLine()
		if imgui.Button("Screenshot") {
			app.screenshot()
		}
		imgui.SameLine()
		if imgui.Button("Inspector") {
			app.inspect.Open = true
		}
		imgui.SameLine()
		if imgui.Button("Save scene") {
			app.saveScene()
		}
		imgui.SameLine()
		if app.status != "" && time.Since(app.statusTime) < 5*time.Second {
			imgui.TextDisabled(app.status)
		}

		avail := imgui.ContentRegionAvail()
		app.fb.Resize(int32(avail.X), int32(avail.Y))

		texRef := imgui.NewTextureRefTextureID(imgui.TextureID(app.fb.ColorTexture()))
		imgui.ImageWithBgV(
			*texRef,
			avail,
			imgui.NewVec2(0, 1), // UV flipped
			imgui.NewVec2(1, 0),
			imgui.NewVec4(0, 0, 0, 1),
			imgui.NewVec4(1, 1, 1, 1),
		)

		if imgui.IsItemHovered() {
			mousePos := imgui.MousePos()
			if imgui.IsMouseDragging(imgui.MouseButtonLeft) {
				app.camera.HandleDrag(mousePos.X-app.lastMouse.X, mousePos.Y-app.lastMouse.Y)
			}
			app.lastMouse = mousePos
			if wheel := imgui.CurrentIO().MouseWheel(); wheel != 0 {
				app.camera.HandleZoom(wheel)
			}
		}
	}
	imgui.End()
}

// saveScene writes the inspected transform, tint and sun back to the
// config file so the viewer starts from them.
func (app *App) saveScene() {
	if app.model == nil {
		app.setStatus("Nothing to save")
		return
	}
	scene := viewer.CaptureScene(app.model, app.path, app.cfg.Scene)
	path, err := app.cfg.SaveScene(scene)
	if err != nil {
		app.setStatus(fmt.Sprintf("Save failed: %v", err))
		return
	}
	app.setStatus(fmt.Sprintf("Scene saved to %s", path))
}

func (app *App) screenshot() {
	path, err := app.shots.Capture(app.fb.Snapshot())
	if err != nil {
		app.setStatus(fmt.Sprintf("Screenshot failed: %v", err))
		return
	}
	app.setStatus(fmt.Sprintf("Saved %s", path))
}
