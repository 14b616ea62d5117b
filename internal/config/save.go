package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Path returns the file the config was loaded from, or "".
func (c *Config) Path() string {
	return c.path
}

// SaveTarget is where SaveScene writes: the loaded file, else the user
// config dir.
func (c *Config) SaveTarget() string {
	if c.path != "" {
		return c.path
	}
	return filepath.Join(ConfigDir(), "config.yaml")
}

// SaveScene replaces the scene section of the config file and adopts it in
// c. Other sections are written as they are on disk, so values that came
// from command-line flags are not persisted.
func (c *Config) SaveScene(scene SceneConfig) (string, error) {
	path := c.SaveTarget()

	onDisk := Default()
	if err := loadFromFile(onDisk, path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	onDisk.Scene = scene
	if err := onDisk.SaveTo(path); err != nil {
		return "", err
	}

	c.Scene = scene
	c.path = path
	return path, nil
}

// SaveTo writes the config as YAML, creating parent directories.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
