package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Button is a clickable UI button
type Button struct {
	Label   string
	X, Y    float64
	W       float64
	H       float64
	OnClick func()

	pressed bool // button held since the last click
	hover   bool

	BGColor    color.RGBA
	HoverColor color.RGBA
}

func NewButton(x, y, width, height float64, label string, onClick func()) *Button {
	return &Button{
		Label:      label,
		X:          x,
		Y:          y,
		W:          width,
		H:          height,
		OnClick:    onClick,
		BGColor:    color.RGBA{R: 80, G: 120, B: 180, A: 255},
		HoverColor: color.RGBA{R: 100, G: 150, B: 220, A: 255},
	}
}

// HandleCursor fires OnClick once per press on the button. A click is not
// a value change, so it always reports false.
func (b *Button) HandleCursor(mx, my float64, pressed bool) bool {
	b.hover = mx >= b.X && mx <= b.X+b.W && my >= b.Y && my <= b.Y+b.H
	if b.hover && pressed {
		if !b.pressed && b.OnClick != nil {
			b.OnClick()
		}
		b.pressed = true
		return false
	}
	b.pressed = false
	return false
}

func (b *Button) Update() bool {
	mx, my := ebiten.CursorPosition()
	return b.HandleCursor(float64(mx), float64(my), ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
}

func (b *Button) Height() float64 {
	return b.H + 5
}

func (b *Button) MoveTo(y float64) { b.Y = y }

func (b *Button) Draw(screen *ebiten.Image) {
	bg := b.BGColor
	if b.hover {
		bg = b.HoverColor
	}
	vector.FillRect(screen,
		float32(b.X), float32(b.Y),
		float32(b.W), float32(b.H),
		bg, true)
	vector.StrokeRect(screen,
		float32(b.X), float32(b.Y),
		float32(b.W), float32(b.H),
		2, color.RGBA{R: 200, G: 200, B: 200, A: 255}, true)
	ebitenutil.DebugPrintAt(screen, b.Label, int(b.X+8), int(b.Y+3))
}
