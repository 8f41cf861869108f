package models

import (
	"fmt"
	"math"
)

// ParsePointerPaintEvent converts a loosely-shaped payload (as decoded from
// YAML or JSON into map[string]any) into a PointerPaintEvent.
//
// Expected keys: element, stack{id,rows,columns,frames,current},
// point{x,y}, ctrl (optional), kind ("paint" or "hover", optional).
func ParsePointerPaintEvent(payload map[string]any) (PointerPaintEvent, error) {
	var ev PointerPaintEvent
	if payload == nil {
		return ev, &ValidationError{Field: "payload", Reason: "missing"}
	}

	element, err := stringField(payload, "element")
	if err != nil {
		return ev, err
	}
	ev.Element = Element(element)

	stackPayload, err := mapField(payload, "stack")
	if err != nil {
		return ev, err
	}
	if ev.Stack, err = parseStack(stackPayload); err != nil {
		return ev, err
	}

	pointPayload, err := mapField(payload, "point")
	if err != nil {
		return ev, err
	}
	if ev.Point.X, err = numberField(pointPayload, "point.x", "x"); err != nil {
		return ev, err
	}
	if ev.Point.Y, err = numberField(pointPayload, "point.y", "y"); err != nil {
		return ev, err
	}

	if raw, ok := payload["ctrl"]; ok {
		b, ok := raw.(bool)
		if !ok {
			return ev, &ValidationError{Field: "ctrl", Reason: fmt.Sprintf("expected boolean, got %T", raw)}
		}
		ev.CtrlPressed = b
	}

	if raw, ok := payload["kind"]; ok {
		switch raw {
		case "paint":
			ev.Kind = PointerPaint
		case "hover":
			ev.Kind = PointerHover
		default:
			return ev, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown pointer kind %v", raw)}
		}
	}

	return ev, ev.Validate()
}

func parseStack(payload map[string]any) (Stack, error) {
	var s Stack
	var err error
	if s.ID, err = stringField(payload, "id"); err != nil {
		return s, err
	}
	if s.Rows, err = intField(payload, "stack.rows", "rows"); err != nil {
		return s, err
	}
	if s.Columns, err = intField(payload, "stack.columns", "columns"); err != nil {
		return s, err
	}
	if s.FrameCount, err = intField(payload, "stack.frames", "frames"); err != nil {
		return s, err
	}
	if s.CurrentIndex, err = intField(payload, "stack.current", "current"); err != nil {
		return s, err
	}
	return s, nil
}

func stringField(payload map[string]any, key string) (string, error) {
	raw, ok := payload[key]
	if !ok {
		return "", &ValidationError{Field: key, Reason: "missing"}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &ValidationError{Field: key, Reason: fmt.Sprintf("expected string, got %T", raw)}
	}
	return s, nil
}

func mapField(payload map[string]any, key string) (map[string]any, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, &ValidationError{Field: key, Reason: "missing"}
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Field: key, Reason: fmt.Sprintf("expected object, got %T", raw)}
	}
	return m, nil
}

func numberField(payload map[string]any, field, key string) (float64, error) {
	raw, ok := payload[key]
	if !ok {
		return 0, &ValidationError{Field: field, Reason: "missing"}
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("expected number, got %T", raw)}
	}
}

func intField(payload map[string]any, field, key string) (int, error) {
	f, err := numberField(payload, field, key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("expected integer, got %v", f)}
	}
	return int(f), nil
}
