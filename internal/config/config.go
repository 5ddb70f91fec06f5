package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rinkworks/rinkmotion/internal/export"
)

type Engine struct {
	FPS         int    `yaml:"fps"`
	Method      string `yaml:"method"` // linear | cubic | hermite
	CacheFrames bool   `yaml:"cache_frames"`
	CacheSize   int    `yaml:"cache_size"`
}

type Trail struct {
	NoiseThreshold  float64 `yaml:"noise_threshold"`
	GoalMouthRadius float64 `yaml:"goal_mouth_radius"`
	ShotMinTimeMs   float64 `yaml:"shot_min_time_ms"`
}

type Config struct {
	Addr       string `yaml:"addr"`
	CatalogDir string `yaml:"catalog_dir"`

	Engine Engine        `yaml:"engine"`
	Trail  Trail         `yaml:"trail"`
	Export export.Config `yaml:"export"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
