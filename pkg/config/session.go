package config

import (
	"image/color"

	"labelbrush/pkg/overlay"
)

// Session is the per-session configuration handed to the brush tool,
// paint engine and compositor. It is built once and not modified afterwards.
type Session struct {
	Radius           float64
	ActiveLabel      uint8
	EraseAny         bool
	Opacity          float64
	LUT              *overlay.ColorLUT
	MaxRasterPixels  int
	Workers          int
	DrawForeignSlice bool
	ShowCursor       bool
}

// NewSession validates cfg and derives the session values from it
func NewSession(cfg *Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lut := overlay.DefaultColorLUT()
	for _, entry := range cfg.Overlay.Colors {
		lut = lut.With(uint8(entry.Label), color.NRGBA{
			R: entry.RGBA[0],
			G: entry.RGBA[1],
			B: entry.RGBA[2],
			A: entry.RGBA[3],
		})
	}

	return &Session{
		Radius:           cfg.Brush.Radius,
		ActiveLabel:      uint8(cfg.Brush.ActiveLabel),
		EraseAny:         cfg.Brush.EraseMode == EraseAny,
		Opacity:          cfg.Overlay.Opacity,
		LUT:              lut,
		MaxRasterPixels:  cfg.Overlay.MaxRasterPixels,
		Workers:          cfg.Overlay.Workers,
		DrawForeignSlice: cfg.Render.DrawForeignSlice,
		ShowCursor:       cfg.Render.ShowCursor,
	}, nil
}

// WithActiveLabel returns a copy of the session drawing label
func (s *Session) WithActiveLabel(label uint8) *Session {
	out := *s
	out.ActiveLabel = label
	return &out
}

// WithRadius returns a copy of the session using radius
func (s *Session) WithRadius(radius float64) *Session {
	out := *s
	out.Radius = radius
	return &out
}
