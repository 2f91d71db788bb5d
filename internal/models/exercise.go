// internal/models/exercise.go
package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Exercise is one step of the enrollment wizard. The prompt is rendered by
// the collaborating frontend; the engine only cares about the gate.
type Exercise struct {
	ID            string `yaml:"id" json:"id"`
	Title         string `yaml:"title" json:"title"`
	Prompt        string `yaml:"prompt" json:"prompt"`
	MinKeystrokes int    `yaml:"min_keystrokes" json:"minKeystrokes"`
}

// ExerciseSet holds the ordered enrollment exercise sequence plus the global
// minimum keystroke count required before a template may be built.
type ExerciseSet struct {
	Exercises    []Exercise `yaml:"exercises"`
	MinTotalKeys int        `yaml:"min_total_keystrokes"`
}

// LoadExerciseSet reads and parses the exercises.yaml file.
func LoadExerciseSet(path string) (*ExerciseSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exercise file: %w", err)
	}

	var set ExerciseSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exercise YAML: %w", err)
	}

	if len(set.Exercises) == 0 {
		return nil, fmt.Errorf("exercise file %s defines no exercises", path)
	}
	for i, ex := range set.Exercises {
		if ex.MinKeystrokes <= 0 {
			return nil, fmt.Errorf("exercise %d (%s) has a non-positive keystroke gate", i, ex.ID)
		}
	}
	return &set, nil
}
