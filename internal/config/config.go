// Package config loads the optional .rtags.yml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up at the project root.
const FileName = ".rtags.yml"

// Config holds project-level indexing settings. Every field has a working
// zero value; a missing file yields the defaults.
type Config struct {
	// DB is the database path, relative to the project root unless absolute.
	DB string `yaml:"db"`
	// CompileCommands is the path to compile_commands.json.
	CompileCommands string `yaml:"compile_commands"`
	// SystemIncludes are -I directories appended to every unit's arguments.
	SystemIncludes []string `yaml:"system_includes"`
	// Workers caps parallel translation-unit walking; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// Default returns the defaults for a project rooted at dir.
func Default(dir string) *Config {
	return &Config{
		DB:              filepath.Join(dir, ".rtags.db"),
		CompileCommands: filepath.Join(dir, "compile_commands.json"),
	}
}

// Load reads dir/.rtags.yml, filling unset fields with defaults. A missing
// file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default(dir)
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}
	if loaded.DB != "" {
		cfg.DB = resolve(dir, loaded.DB)
	}
	if loaded.CompileCommands != "" {
		cfg.CompileCommands = resolve(dir, loaded.CompileCommands)
	}
	for _, inc := range loaded.SystemIncludes {
		cfg.SystemIncludes = append(cfg.SystemIncludes, resolve(dir, inc))
	}
	if loaded.Workers > 0 {
		cfg.Workers = loaded.Workers
	}
	return cfg, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
