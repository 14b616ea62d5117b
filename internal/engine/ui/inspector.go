package ui

import (
	"fmt"
	gomath "math"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/Faultbox/objengine/internal/engine/lighting"
	"github.com/Faultbox/objengine/internal/engine/model"
	"github.com/Faultbox/objengine/pkg/math"
)

// ModelInspector edits a model's transform, tint and lighting.
type ModelInspector struct {
	Open bool

	target *model.Model
	state  inspectorState
}

// inspectorState mirrors the editable model fields in widget form.
type inspectorState struct {
	position   [3]float32
	rotation   [3]float32 // degrees
	scale      [3]float32
	color      [4]float32
	lightDir   [3]float32
	lightColor [3]float32
	pointPos   [3]float32
	pointColor [3]float32
	pointRange float32
}

// NewModelInspector creates an open inspector for m.
func NewModelInspector(m *model.Model) *ModelInspector {
	in := &ModelInspector{Open: true}
	in.SetTarget(m)
	return in
}

// SetTarget switches the inspected model.
func (in *ModelInspector) SetTarget(m *model.Model) {
	in.target = m
	if m != nil {
		in.state.load(m)
	}
}

// Target returns the inspected model.
func (in *ModelInspector) Target() *model.Model {
	return in.target
}

// Draw renders the inspector window and applies edits to the target.
func (in *ModelInspector) Draw() {
	if !in.Open || in.target == nil {
		return
	}

	imgui.SetNextWindowSize(imgui.NewVec2(340, 0))
	if imgui.BeginV(fmt.Sprintf("Model: %s###Inspector", in.target.Name()), &in.Open, imgui.WindowFlagsAlwaysAutoResize) {
		in.state.load(in.target)
		changed := false

		imgui.Text(fmt.Sprintf("State: %s", in.target.State()))
		imgui.Text(fmt.Sprintf("Partitions: %d  Materials: %d", len(in.target.Partitions()), len(in.target.Materials())))
		imgui.Separator()

		imgui.TextDisabled("Transform")
		changed = imgui.DragFloat3V("Position", &in.state.position, 0.05, 0, 0, "%.2f", imgui.SliderFlagsNone) || changed
		changed = imgui.DragFloat3V("Rotation", &in.state.rotation, 1, -360, 360, "%.1f deg", imgui.SliderFlagsNone) || changed
		changed = imgui.DragFloat3V("Scale", &in.state.scale, 0.01, 0.001, 1000, "%.3f", imgui.SliderFlagsNone) || changed
		changed = imgui.ColorEdit4("Tint", &in.state.color) || changed

		imgui.Spacing()
		imgui.TextDisabled("Directional light")
		changed = imgui.DragFloat3V("Direction", &in.state.lightDir, 0.01, -1, 1, "%.2f", imgui.SliderFlagsNone) || changed
		changed = imgui.ColorEdit3("Color", &in.state.lightColor) || changed

		imgui.Spacing()
		imgui.TextDisabled("Point light")
		changed = imgui.DragFloat3V("Point position", &in.state.pointPos, 0.05, 0, 0, "%.2f", imgui.SliderFlagsNone) || changed
		changed = imgui.DragFloat3V("Point color", &in.state.pointColor, 0.1, 0, 100, "%.1f", imgui.SliderFlagsNone) || changed
		changed = imgui.DragFloatV("Range", &in.state.pointRange, 0.1, 0, 1000, "%.1f", imgui.SliderFlagsNone) || changed

		if changed {
			in.state.apply(in.target)
		}

		imgui.Spacing()
		if imgui.Button("Reset transform") {
			in.target.Position = math.Vec3{}
			in.target.Rotation = math.Vec3{}
			in.target.Scale = math.Vec3{X: 1, Y: 1, Z: 1}
		}
		imgui.SameLine()
		if imgui.Button("Reset lighting") {
			in.target.Light = lighting.Defaults()
		}
	}
	imgui.End()
}

func (s *inspectorState) load(m *model.Model) {
	s.position = vec3Array(m.Position)
	s.rotation = vec3Array(m.Rotation.Scale(180 / gomath.Pi))
	s.scale = vec3Array(m.Scale)
	s.color = [4]float32(math.ColorFromUint(m.Color))
	s.lightDir = vec3Array(m.Light.Direction)
	s.lightColor = vec3Array(m.Light.Color)
	s.pointPos = vec3Array(m.Light.Point.Position)
	s.pointColor = vec3Array(m.Light.Point.Color)
	s.pointRange = m.Light.Point.Range
}

// apply writes the widget values back. The light direction is renormalized.
func (s *inspectorState) apply(m *model.Model) {
	m.Position = arrayVec3(s.position)
	m.Rotation = arrayVec3(s.rotation).Scale(gomath.Pi / 180)
	m.Scale = arrayVec3(s.scale)
	m.Color = math.ColorToUint(math.Vec4(s.color))
	m.Light = lighting.Params{
		Direction: arrayVec3(s.lightDir),
		Color:     arrayVec3(s.lightColor),
		Point: lighting.PointLight{
			Position: arrayVec3(s.pointPos),
			Color:    arrayVec3(s.pointColor),
			Range:    s.pointRange,
		},
	}.Normalized()
}

func vec3Array(v math.Vec3) [3]float32 { return [3]float32{v.X, v.Y, v.Z} }

func arrayVec3(a [3]float32) math.Vec3 { return math.Vec3{X: a[0], Y: a[1], Z: a[2]} }
