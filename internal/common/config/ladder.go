package config

import (
	"fmt"
	"os"

	"field-overlay/internal/overlay/renderer"

	"gopkg.in/yaml.v3"
)

// ============================================================
// Renderer Ladder
// ============================================================

type ladderFile struct {
	Stages []renderer.Stage `yaml:"stages"`
}

// LoadLadder читает лестницу рендереров из YAML. Пустой путь даёт лестницу
// по умолчанию.
func LoadLadder(path string) ([]renderer.Stage, error) {
	if path == "" {
		return renderer.DefaultLadder(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ladder: %w", err)
	}
	return ParseLadder(data)
}

// ParseLadder decodes and validates a ladder document. The last stage must
// be the fallback.
func ParseLadder(data []byte) ([]renderer.Stage, error) {
	var f ladderFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse ladder: %w", err)
	}
	if err := renderer.ValidateLadder(f.Stages); err != nil {
		return nil, err
	}
	if last := f.Stages[len(f.Stages)-1]; last.Name != renderer.StageFallback {
		return nil, fmt.Errorf("%w: last stage is %q, want %q", renderer.ErrInvalidLadder, last.Name, renderer.StageFallback)
	}
	return f.Stages, nil
}
