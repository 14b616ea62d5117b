package ui

import (
	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/Faultbox/objengine/internal/engine/renderer"
)

// OverlayStats is what the FPS overlay shows.
type OverlayStats struct {
	FPS        float32
	Renderer   renderer.Stats
	Partitions int
	SlotReuses int
}

// DrawOverlay draws a small translucent stats window in the top-left corner.
func DrawOverlay(s OverlayStats) {
	flags := imgui.WindowFlagsNoTitleBar | imgui.WindowFlagsNoResize |
		imgui.WindowFlagsNoMove | imgui.WindowFlagsNoScrollbar |
		imgui.WindowFlagsAlwaysAutoResize | imgui.WindowFlagsNoFocusOnAppearing

	workPos := imgui.MainViewport().WorkPos()
	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X+10, workPos.Y+10))
	imgui.SetNextWindowBgAlpha(0.6)
	if imgui.BeginV("##Overlay", nil, flags) {
		imgui.Text(FormatFPS(s.FPS))
		imgui.Separator()
		imgui.Text(formatCount("Draw calls", s.Renderer.DrawCalls))
		imgui.Text(formatCount("Partitions", s.Partitions))
		imgui.Text(formatCount("Buffers", s.Renderer.Buffers))
		imgui.Text(formatCount("Textures", s.Renderer.Textures))
		if s.Renderer.PendingTextures > 0 {
			imgui.TextColored(imgui.NewVec4(1, 0.8, 0.3, 1), formatCount("Loading", s.Renderer.PendingTextures))
		}
		if s.SlotReuses > 0 {
			imgui.TextColored(imgui.NewVec4(1, 0.4, 0.4, 1), formatCount("Slot reuses", s.SlotReuses))
		}
	}
	imgui.End()
}
