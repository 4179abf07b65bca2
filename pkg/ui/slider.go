package ui

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Slider is a horizontal bar selecting a value in [Min, Max].
type Slider struct {
	Label    string
	Key      string // tunable name the slider drives
	Value    float64
	Min, Max float64
	X, Y     float64
	W, H     float64
}

// NewSlider creates a slider, clamping value into [min, max].
func NewSlider(x, y, w float64, label, key string, min, max, value float64) *Slider {
	s := &Slider{
		Label: label,
		Key:   key,
		Min:   min,
		Max:   max,
		X:     x,
		Y:     y,
		W:     w,
		H:     12,
	}
	s.Set(value)
	return s
}

// Set clamps v into range and reports whether the value changed.
func (s *Slider) Set(v float64) bool {
	v = max(s.Min, min(s.Max, v))
	if v == s.Value {
		return false
	}
	s.Value = v
	return true
}

// HandleCursor moves the slider when the button is pressed inside it.
func (s *Slider) HandleCursor(mx, my float64, pressed bool) bool {
	if !pressed || !s.contains(mx, my) || s.W <= 0 {
		return false
	}
	p := (mx - s.X) / s.W
	return s.Set(s.Min + p*(s.Max-s.Min))
}

func (s *Slider) contains(mx, my float64) bool {
	return mx >= s.X && mx <= s.X+s.W && my >= s.Y && my <= s.Y+s.H
}

// Update checks for mouse interaction
func (s *Slider) Update() bool {
	mx, my := ebiten.CursorPosition()
	return s.HandleCursor(float64(mx), float64(my), ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
}

func (s *Slider) Height() float64 {
	return s.H + 25 // bar plus label line
}

func (s *Slider) MoveTo(y float64) { s.Y = y }

// Draw renders the slider
func (s *Slider) Draw(screen *ebiten.Image) {
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W), float32(s.H), color.RGBA{R: 80, G: 80, B: 80, A: 255}, true)

	ratio := 0.0
	if s.Max > s.Min {
		ratio = (s.Value - s.Min) / (s.Max - s.Min)
	}
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W*ratio), float32(s.H), color.RGBA{R: 200, G: 200, B: 200, A: 255}, true)

	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%.2f", s.Value), int(s.X+s.W-40), int(s.Y-15))
}
