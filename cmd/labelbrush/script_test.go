package main

import (
	"maps"
	"os"
	"path/filepath"
	"testing"

	"labelbrush/internal/models"
)

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	content := `
stack: {id: knee, rows: 32, columns: 48, frames: 3}
viewport: {scale: 1.5, translation: [2, -1]}
events:
  - {kind: paint, slice: 1, point: {x: 10, y: 12.5}}
  - {kind: paint, ctrl: true, slice: 1, point: {x: 10, y: 12}}
  - {render: true, slice: 1}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	s, err := LoadScript(path)
	if err != nil {
		t.Fatalf("Failed to load script: %v", err)
	}
	if s.Canvas.Width != 96 || s.Canvas.Height != 64 {
		t.Errorf("Expected default canvas 96x64, got %dx%d", s.Canvas.Width, s.Canvas.Height)
	}
	if vp := s.viewport(); vp.Scale != 1.5 || vp.Translation != (models.Point{X: 2, Y: -1}) {
		t.Errorf("Unexpected viewport %+v", vp)
	}
	if len(s.Events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(s.Events))
	}

	payload := maps.Clone(s.Events[1])
	delete(payload, "slice")
	payload["element"] = "el"
	payload["stack"] = s.stackPayload(1)

	ev, err := models.ParsePointerPaintEvent(payload)
	if err != nil {
		t.Fatalf("Failed to parse event: %v", err)
	}
	if !ev.CtrlPressed || ev.Stack.CurrentIndex != 1 || ev.Stack.Columns != 48 {
		t.Errorf("Unexpected event %+v", ev)
	}
}

func TestLoadScriptMissing(t *testing.T) {
	if _, err := LoadScript(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing script, got nil")
	}
}

func TestDemoScriptEventsParse(t *testing.T) {
	s := DemoScript(64, 64, 4)
	for i, raw := range s.Events {
		if render, _ := raw["render"].(bool); render {
			continue
		}
		payload := maps.Clone(raw)
		payload["element"] = "el"
		payload["stack"] = s.stackPayload(raw["slice"].(int))
		delete(payload, "slice")
		if _, err := models.ParsePointerPaintEvent(payload); err != nil {
			t.Errorf("Event %d does not parse: %v", i, err)
		}
	}
}
