package theme

import (
	"image/color"
	"runtime"

	"gioui.org/unit"
	"gioui.org/widget/material"
)

// Palette defines the editor colors.
type Palette struct {
	Background color.NRGBA
	Surface    color.NRGBA
	Panel      color.NRGBA
	Primary    color.NRGBA
	Text       color.NRGBA
	TextMuted  color.NRGBA
	Border     color.NRGBA
	Error      color.NRGBA

	// Timeline bars and playhead.
	Bar         color.NRGBA
	BarSelected color.NRGBA
	Playhead    color.NRGBA
}

// Config defines the editor metrics.
type Config struct {
	CornerRadius unit.Dp
	Spacing      unit.Dp
	Padding      unit.Dp
	FontTitle    unit.Sp
	FontBody     unit.Sp
	FontCaption  unit.Sp

	// TimelineRow is the height of one timeline row.
	TimelineRow unit.Dp
	// HandleWidth is the grab zone at each end of a timeline bar.
	HandleWidth unit.Dp
}

// Theme wraps the material theme with editor styling.
type Theme struct {
	*material.Theme
	Palette Palette
	Config  Config
}

// NewTheme creates a new theme based on the current OS.
func NewTheme(mtheme *material.Theme) *Theme {
	t := &Theme{
		Theme: mtheme,
	}

	switch runtime.GOOS {
	case "darwin":
		setupMacOSTheme(t)
	default:
		setupDefaultTheme(t)
	}

	t.Theme.Palette.Bg = t.Palette.Background
	t.Theme.Palette.Fg = t.Palette.Text
	t.Theme.Palette.ContrastBg = t.Palette.Primary
	t.Theme.TextSize = t.Config.FontBody
	return t
}

func setupDefaultTheme(t *Theme) {
	t.Palette = Palette{
		Background:  color.NRGBA{R: 0x18, G: 0x18, B: 0x1B, A: 0xFF},
		Surface:     color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xFF},
		Panel:       color.NRGBA{R: 0x27, G: 0x27, B: 0x2A, A: 0xFF},
		Primary:     color.NRGBA{R: 0x63, G: 0x66, B: 0xF1, A: 0xFF}, // indigo, matches region strokes
		Text:        color.NRGBA{R: 0xF4, G: 0xF4, B: 0xF5, A: 0xFF},
		TextMuted:   color.NRGBA{R: 0xA1, G: 0xA1, B: 0xAA, A: 0xFF},
		Border:      color.NRGBA{R: 0x3F, G: 0x3F, B: 0x46, A: 0xFF},
		Error:       color.NRGBA{R: 0xEF, G: 0x44, B: 0x44, A: 0xFF},
		Bar:         color.NRGBA{R: 0x63, G: 0x66, B: 0xF1, A: 0xB0},
		BarSelected: color.NRGBA{R: 0x22, G: 0xC5, B: 0x5E, A: 0xFF},
		Playhead:    color.NRGBA{R: 0xEF, G: 0x44, B: 0x44, A: 0xFF},
	}

	t.Config = Config{
		CornerRadius: unit.Dp(4),
		Spacing:      unit.Dp(8),
		Padding:      unit.Dp(12),
		FontTitle:    unit.Sp(18),
		FontBody:     unit.Sp(14),
		FontCaption:  unit.Sp(12),
		TimelineRow:  unit.Dp(22),
		HandleWidth:  unit.Dp(6),
	}
}

func setupMacOSTheme(t *Theme) {
	setupDefaultTheme(t)
	t.Palette.Primary = color.NRGBA{R: 0x0A, G: 0x84, B: 0xFF, A: 0xFF} // Apple Blue
	t.Config.CornerRadius = unit.Dp(8)
	t.Config.FontBody = unit.Sp(13)
	t.Config.FontCaption = unit.Sp(11)
}
