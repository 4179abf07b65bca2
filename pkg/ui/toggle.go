package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Toggle is a checkbox for boolean view options
type Toggle struct {
	Label   string
	Value   bool
	X, Y    float64
	Size    float64
	pressed bool // button held since the last flip
}

func NewToggle(x, y float64, label string, value bool) *Toggle {
	return &Toggle{
		Label: label,
		Value: value,
		X:     x,
		Y:     y,
		Size:  16,
	}
}

// HandleCursor flips the value once per press inside the box.
func (t *Toggle) HandleCursor(mx, my float64, pressed bool) bool {
	over := mx >= t.X && mx <= t.X+t.Size && my >= t.Y && my <= t.Y+t.Size
	if over && pressed {
		if !t.pressed {
			t.Value = !t.Value
			t.pressed = true
			return true
		}
		return false
	}
	t.pressed = false
	return false
}

func (t *Toggle) Update() bool {
	mx, my := ebiten.CursorPosition()
	return t.HandleCursor(float64(mx), float64(my), ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
}

func (t *Toggle) Height() float64 {
	return t.Size + 5
}

func (t *Toggle) MoveTo(y float64) { t.Y = y }

func (t *Toggle) Draw(screen *ebiten.Image) {
	vector.StrokeRect(screen,
		float32(t.X), float32(t.Y),
		float32(t.Size), float32(t.Size),
		2,
		color.RGBA{R: 200, G: 200, B: 200, A: 255},
		true)

	if t.Value {
		vector.FillRect(screen,
			float32(t.X+2), float32(t.Y+2),
			float32(t.Size-4), float32(t.Size-4),
			color.RGBA{R: 100, G: 200, B: 100, A: 255},
			true)
	}
}
