package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Widget is implemented by every control a Panel lays out.
type Widget interface {
	// Update polls input and reports whether the widget value changed.
	Update() bool
	Draw(screen *ebiten.Image)
	Height() float64
	MoveTo(y float64)
}

// Panel stacks widgets in titled sections and scrolls with the wheel.
type Panel struct {
	X, Y          float64
	Width, Height float64
	Title         string
	Widgets       []Widget
	Labels        []string
	ScrollOffset  float64

	BGColor     color.RGBA
	BorderColor color.RGBA

	sections []section
	changed  bool
}

type section struct {
	title      string
	start, end int // widget indices, end exclusive
}

func NewPanel(x, y, width, height float64, title string) *Panel {
	return &Panel{
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		Title:       title,
		BGColor:     color.RGBA{R: 40, G: 40, B: 45, A: 230},
		BorderColor: color.RGBA{R: 100, G: 100, B: 110, A: 255},
	}
}

func (p *Panel) AddSection(title string) {
	p.sections = append(p.sections, section{title: title, start: len(p.Widgets), end: len(p.Widgets)})
}

// EndSection closes the current section
func (p *Panel) EndSection() {
	if len(p.sections) > 0 {
		p.sections[len(p.sections)-1].end = len(p.Widgets)
	}
}

// AddSlider adds a slider driving the tunable key.
func (p *Panel) AddSlider(label, key string, min, max, value float64) *Slider {
	s := NewSlider(p.X+10, p.Y+p.nextOffset()+20, p.Width-20, label, key, min, max, value)
	p.add(label, s)
	return s
}

func (p *Panel) AddToggle(label string, value bool) *Toggle {
	t := NewToggle(p.X+10, p.Y+p.nextOffset()+20, label, value)
	p.add(label, t)
	return t
}

func (p *Panel) AddButton(label string, onClick func()) *Button {
	b := NewButton(p.X+10, p.Y+p.nextOffset()+20, p.Width-20, 18, label, onClick)
	p.add("", b)
	return b
}

func (p *Panel) add(label string, w Widget) {
	p.Widgets = append(p.Widgets, w)
	p.Labels = append(p.Labels, label)
	if len(p.sections) > 0 {
		p.sections[len(p.sections)-1].end = len(p.Widgets)
	}
}

func (p *Panel) nextOffset() float64 {
	offset := float64(len(p.sections)) * 25
	for _, w := range p.Widgets {
		offset += w.Height()
	}
	return offset
}

// ContentHeight is the height of everything the panel holds, title included.
func (p *Panel) ContentHeight() float64 {
	return 30 + p.nextOffset()
}

// Scroll moves the content by dy wheel steps, clamped to the content.
func (p *Panel) Scroll(dy float64) {
	p.ScrollOffset -= dy * 20
	maxScroll := max(p.ContentHeight()-p.Height+40, 0)
	p.ScrollOffset = max(0, min(maxScroll, p.ScrollOffset))
}

// Update handles input for all widgets
func (p *Panel) Update() {
	if _, dy := ebiten.Wheel(); dy != 0 {
		p.Scroll(dy)
	}
	p.changed = false
	for _, w := range p.Widgets {
		if w.Update() {
			p.changed = true
		}
	}
}

// Changed reports whether any widget value moved during the last Update.
func (p *Panel) Changed() bool {
	return p.changed
}

// Sliders returns every slider of the panel, in insertion order.
func (p *Panel) Sliders() []*Slider {
	var out []*Slider
	for _, w := range p.Widgets {
		if s, ok := w.(*Slider); ok {
			out = append(out, s)
		}
	}
	return out
}

// Draw renders the panel and all widgets
func (p *Panel) Draw(screen *ebiten.Image) {
	vector.FillRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		p.BGColor, true)
	vector.StrokeRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		2, p.BorderColor, true)
	ebitenutil.DebugPrintAt(screen, p.Title, int(p.X+10), int(p.Y+5))

	currentY := p.Y + 30 - p.ScrollOffset
	for _, sec := range p.sections {
		if p.visible(currentY, 25) {
			vector.FillRect(screen,
				float32(p.X+5), float32(currentY),
				float32(p.Width-10), 20,
				color.RGBA{R: 60, G: 60, B: 70, A: 255}, true)
			ebitenutil.DebugPrintAt(screen, sec.title, int(p.X+10), int(currentY+5))
		}
		currentY += 25

		for i := sec.start; i < sec.end && i < len(p.Widgets); i++ {
			w := p.Widgets[i]
			if p.visible(currentY, 30) {
				if p.Labels[i] != "" {
					ebitenutil.DebugPrintAt(screen, p.Labels[i], int(p.X+10), int(currentY))
				}
				w.MoveTo(currentY + 15)
				w.Draw(screen)
			}
			currentY += w.Height()
		}
	}
}

func (p *Panel) visible(y, margin float64) bool {
	return y >= p.Y-margin && y <= p.Y+p.Height
}
