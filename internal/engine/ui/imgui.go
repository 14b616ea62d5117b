// Package ui provides ImGui-based panels for the model inspector.
package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/objengine/pkg/math"
)

// Backend wraps the ImGui SDL backend.
type Backend struct {
	backend backend.Backend[sdlbackend.SDLWindowFlags]
	width   int32
	height  int32
}

// NewBackend creates the window, the ImGui context and loads GL.
// fontPath may be empty to keep the builtin font.
func NewBackend(title string, width, height int32, background uint32, fontPath string) (*Backend, error) {
	if fontPath != "" {
		if err := checkFont(fontPath); err != nil {
			return nil, err
		}
	}

	b := &Backend{
		width:  width,
		height: height,
	}

	var err error
	b.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	if fontPath != "" {
		b.backend.SetAfterCreateContextHook(func() {
			loadFont(fontPath)
		})
	}

	bg := math.ColorFromUint(background)
	b.backend.SetBgColor(imgui.NewVec4(bg[0], bg[1], bg[2], bg[3]))
	b.backend.CreateWindow(title, int(width), int(height))

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("init opengl: %w", err)
	}

	return b, nil
}

// checkFont rejects paths ImGui cannot load as a TrueType font.
func checkFont(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttf", ".otf":
	default:
		return fmt.Errorf("font %s: not a .ttf or .otf file", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("font: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("font %s: is a directory", path)
	}
	return nil
}

func loadFont(path string) {
	fontCfg := imgui.NewFontConfig()
	defer fontCfg.Destroy()

	imgui.CurrentIO().Fonts().AddFontFromFileTTFV(path, 16.0, fontCfg, nil)
}

// Run starts the main render loop.
func (b *Backend) Run(renderFunc func()) {
	b.backend.Run(renderFunc)
}

// SetWindowTitle updates the window title.
func (b *Backend) SetWindowTitle(title string) {
	b.backend.SetWindowTitle(title)
}

// GetViewport returns the main viewport work area.
func (b *Backend) GetViewport() (posX, posY, width, height float32) {
	viewport := imgui.MainViewport()
	workPos := viewport.WorkPos()
	workSize := viewport.WorkSize()
	return workPos.X, workPos.Y, workSize.X, workSize.Y
}

// IsKeyPressed checks if a key was pressed this frame.
func IsKeyPressed(key imgui.Key) bool {
	return imgui.IsKeyChordPressed(imgui.KeyChord(key))
}

// IsKeyDown checks if a key is currently held down.
func IsKeyDown(key imgui.Key) bool {
	return imgui.IsKeyDown(key)
}
