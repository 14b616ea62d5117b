package viewer

import (
	"fmt"
	gomath "math"
	"path/filepath"
	"strings"

	"github.com/Faultbox/objengine/internal/config"
	"github.com/Faultbox/objengine/internal/engine/lighting"
	"github.com/Faultbox/objengine/internal/engine/model"
	"github.com/Faultbox/objengine/internal/engine/shader"
	"github.com/Faultbox/objengine/pkg/math"
)

// ShaderPaths returns the model shader set. An empty dir uses the builtin
// sources.
func ShaderPaths(dir string) model.ShaderPaths {
	if dir == "" {
		return model.ShaderPaths{Vertex: shader.ModelVertex, Pixel: shader.ModelFragment}
	}
	return model.ShaderPaths{
		Vertex: filepath.Join(dir, shader.ModelVertex),
		Pixel:  filepath.Join(dir, shader.ModelFragment),
	}
}

// ModelOptions derives model options from the config.
func ModelOptions(cfg *config.Config, path string) model.Options {
	maxDraws := cfg.Render.MaxDrawIndex
	if cfg.Scene.Instances > maxDraws {
		maxDraws = cfg.Scene.Instances
	}
	return model.Options{
		Name:          strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		MaxDrawIndex:  maxDraws,
		AsyncTextures: cfg.Render.AsyncTextures,
		Wireframe:     cfg.Render.Wireframe,
	}
}

// ApplyScene copies the configured transform, tint and sun onto m.
func ApplyScene(m *model.Model, scene config.SceneConfig) {
	m.Position = arrayVec3(scene.Position)
	m.Rotation = arrayVec3(scene.Rotation).Scale(gomath.Pi / 180)
	m.Scale = arrayVec3(scene.Scale)
	m.Color = scene.Color
	if scene.Sun != nil {
		m.Light = m.Light.WithSun(scene.Sun.Longitude, scene.Sun.Latitude)
	}
}

// CaptureScene is the inverse of ApplyScene: it returns base with the
// transform, tint and sun taken from m and Model set to path. The sun is
// recorded only when the light no longer points the default way.
func CaptureScene(m *model.Model, path string, base config.SceneConfig) config.SceneConfig {
	scene := base
	scene.Model = path
	scene.Position = vec3Array(m.Position)
	scene.Rotation = vec3Array(m.Rotation.Scale(180 / gomath.Pi))
	scene.Scale = vec3Array(m.Scale)
	scene.Color = m.Color

	if m.Light.Direction.Normalize() != lighting.Defaults().Direction.Normalize() {
		lon, lat := m.Light.Sun()
		scene.Sun = &config.SunConfig{Longitude: lon, Latitude: lat}
	}
	return scene
}

// LoadModel creates a model and runs it through geometry, shader and
// pipeline creation. The model is returned even on error so its partial
// state can be inspected; the caller releases it.
func LoadModel(svc model.Services, cfg *config.Config, path string) (*model.Model, error) {
	m, err := model.New(svc, ModelOptions(cfg, path))
	if err != nil {
		return nil, err
	}
	ApplyScene(m, cfg.Scene)

	if err := m.LoadObj(path); err != nil {
		return m, fmt.Errorf("loading %s: %w", path, err)
	}
	if err := m.LoadShader(ShaderPaths(cfg.Render.ShaderDir)); err != nil {
		return m, err
	}
	if err := m.CreateGraphicsPipeline(); err != nil {
		return m, err
	}
	return m, nil
}

// InstanceOffsets spaces n copies along X around the origin, one bounding
// diameter apart.
func InstanceOffsets(n int, radius float32) []math.Vec3 {
	if n < 1 {
		return nil
	}
	step := radius * 2.2
	if step <= 0 {
		step = 1
	}
	start := -step * float32(n-1) / 2
	out := make([]math.Vec3, n)
	for i := range out {
		out[i] = math.Vec3{X: start + step*float32(i)}
	}
	return out
}

func arrayVec3(a [3]float32) math.Vec3 { return math.Vec3{X: a[0], Y: a[1], Z: a[2]} }

func vec3Array(v math.Vec3) [3]float32 { return [3]float32{v.X, v.Y, v.Z} }
