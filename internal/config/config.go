// Package config handles viewer configuration loading and management.
package config

// Config holds all viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Render   RenderConfig   `yaml:"render"`
	Scene    SceneConfig    `yaml:"scene"`
	Audio    AudioConfig    `yaml:"audio"`
	Debug    DebugConfig    `yaml:"debug"`
	Logging  LoggingConfig  `yaml:"logging"`

	// File the config was read from, empty when only defaults and flags apply
	path string
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
	FPSLimit   int    `yaml:"fps_limit"`
	ClearColor uint32 `yaml:"clear_color"` // 0xRRGGBBAA
}

// RenderConfig holds model rendering settings.
type RenderConfig struct {
	MaxDrawIndex   int    `yaml:"max_draw_index"` // Draws per model per frame before slots are reused
	AsyncTextures  bool   `yaml:"async_textures"`
	ShaderDir      string `yaml:"shader_dir"` // Empty uses the builtin shaders
	Wireframe      bool   `yaml:"wireframe"`
	MaxTextureSize int    `yaml:"max_texture_size"`
}

// SceneConfig describes the model shown at startup.
type SceneConfig struct {
	Model    string     `yaml:"model"`
	Position [3]float32 `yaml:"position"`
	Rotation [3]float32 `yaml:"rotation"` // Degrees
	Scale    [3]float32 `yaml:"scale"`
	Color    uint32     `yaml:"color"` // 0xRRGGBBAA tint
	Sun      *SunConfig `yaml:"sun,omitempty"`

	// Instances draws the model this many times per frame in a row.
	Instances int `yaml:"instances"`
}

// SunConfig overrides the default light direction with a sun position.
type SunConfig struct {
	Longitude float32 `yaml:"longitude"`
	Latitude  float32 `yaml:"latitude"`
}

// AudioConfig holds background music settings.
type AudioConfig struct {
	BGM    string  `yaml:"bgm"`
	Volume float32 `yaml:"volume"`
	Muted  bool    `yaml:"muted"`
}

// DebugConfig holds developer settings.
type DebugConfig struct {
	Overlay      bool   `yaml:"overlay"`       // FPS overlay and model inspector
	ErrorDialogs bool   `yaml:"error_dialogs"` // Native message box on load errors
	Font         string `yaml:"font"`          // TTF for ImGui panels, empty keeps the builtin
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
			ClearColor: 0x1a1a26ff,
		},
		Render: RenderConfig{
			MaxDrawIndex:   64,
			AsyncTextures:  false,
			MaxTextureSize: 4096,
		},
		Scene: SceneConfig{
			Scale:     [3]float32{1, 1, 1},
			Color:     0xffffffff,
			Instances: 1,
		},
		Audio: AudioConfig{
			Volume: 0.7,
		},
		Debug: DebugConfig{
			Overlay:      false,
			ErrorDialogs: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
