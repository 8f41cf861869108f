package main

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"labelbrush/internal/models"
)

// Script is a recorded editing session replayed by the driver
type Script struct {
	Stack struct {
		ID      string `yaml:"id"`
		Rows    int    `yaml:"rows"`
		Columns int    `yaml:"columns"`
		Frames  int    `yaml:"frames"`
	} `yaml:"stack"`

	Canvas struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"canvas"`

	Viewport struct {
		Scale       float64    `yaml:"scale"`
		Translation [2]float64 `yaml:"translation"`
		Rotation    float64    `yaml:"rotation"`
	} `yaml:"viewport"`

	// Events are loosely-shaped payloads; each is either a pointer event
	// (point/ctrl/kind) or a render request (render: true). "slice" selects
	// the displayed slice for the event.
	Events []map[string]any `yaml:"events"`
}

// LoadScript reads a YAML script
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading script: %w", err)
	}
	s := &Script{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("error parsing script: %w", err)
	}
	s.applyDefaults()
	return s, nil
}

// DemoScript paints a curved stroke across the middle slice, erases part of
// it and renders after every step.
func DemoScript(rows, cols, frames int) *Script {
	s := &Script{}
	s.Stack.ID = "demo"
	s.Stack.Rows = rows
	s.Stack.Columns = cols
	s.Stack.Frames = frames
	s.applyDefaults()

	slice := frames / 2
	for i := 0; i <= 20; i++ {
		t := float64(i) / 20
		x := float64(cols) * (0.2 + 0.6*t)
		y := float64(rows) * (0.5 + 0.2*math.Sin(2*math.Pi*t))
		s.Events = append(s.Events,
			map[string]any{"kind": "paint", "slice": slice, "point": map[string]any{"x": x, "y": y}},
			map[string]any{"render": true, "slice": slice},
		)
	}
	for i := 0; i <= 5; i++ {
		x := float64(cols) * (0.45 + 0.02*float64(i))
		s.Events = append(s.Events,
			map[string]any{"kind": "paint", "ctrl": true, "slice": slice, "point": map[string]any{"x": x, "y": float64(rows) * 0.5}},
			map[string]any{"render": true, "slice": slice},
		)
	}
	s.Events = append(s.Events, map[string]any{"kind": "hover", "slice": slice, "point": map[string]any{"x": float64(cols) / 2, "y": float64(rows) / 4}})
	s.Events = append(s.Events, map[string]any{"render": true, "slice": slice})
	return s
}

func (s *Script) applyDefaults() {
	if s.Stack.ID == "" {
		s.Stack.ID = "script"
	}
	if s.Canvas.Width == 0 {
		s.Canvas.Width = s.Stack.Columns * 2
	}
	if s.Canvas.Height == 0 {
		s.Canvas.Height = s.Stack.Rows * 2
	}
	if s.Viewport.Scale == 0 {
		s.Viewport.Scale = 2
	}
}

func (s *Script) viewport() models.Viewport {
	return models.Viewport{
		Scale:       s.Viewport.Scale,
		Translation: models.Point{X: s.Viewport.Translation[0], Y: s.Viewport.Translation[1]},
		Rotation:    s.Viewport.Rotation,
	}
}

// stackPayload fills the loosely-shaped stack section for an event
func (s *Script) stackPayload(current int) map[string]any {
	return map[string]any{
		"id":      s.Stack.ID,
		"rows":    s.Stack.Rows,
		"columns": s.Stack.Columns,
		"frames":  s.Stack.Frames,
		"current": current,
	}
}
