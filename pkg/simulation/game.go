package simulation

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/tochemey/goakt/v3/actor"
	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/ui"
)

const (
	ScreenWidth  = 1280
	ScreenHeight = 800

	orbitStep = 0.03
	zoomStep  = 1.02
)

var (
	backgroundColor = color.RGBA{R: 10, G: 10, B: 30, A: 255}
	boxColor        = color.RGBA{R: 90, G: 90, B: 120, A: 255}
	agentColor      = color.RGBA{R: 100, G: 200, B: 255, A: 255}
	headingColor    = color.RGBA{R: 60, G: 120, B: 160, A: 255}
)

// integer config keys; slider values are rounded before they are sent
var integerKeys = map[string]bool{"count": true, "batchSize": true, "workers": true}

type Game struct {
	ctx        context.Context
	System     actor.ActorSystem
	flockPID   *actor.PID
	snapshotCh chan *Snapshot
	lastState  *Snapshot
	logger     *zap.Logger

	cfg          *flock.Config
	camera       *Camera
	tickDuration time.Duration

	// UI Controls
	panel       *ui.Panel
	showBox     *ui.Toggle
	showHeading *ui.Toggle
	paused      *ui.Toggle

	width, height int

	// Timing instrumentation
	updateAvg float64 // Rolling average in ms
	drawAvg   float64
}

// NewGame spawns a flock actor under a unique name in system and builds the
// viewer around it.
func NewGame(ctx context.Context, cfg *flock.Config, system actor.ActorSystem, logger *zap.Logger) (*Game, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Buffer to avoid blocking
	snapshotCh := make(chan *Snapshot, 4)

	name := "flock-" + uuid.NewString()
	pid, err := system.Spawn(ctx, name, NewFlockActor(cfg, snapshotCh, logger))
	if err != nil {
		return nil, fmt.Errorf("failed to spawn %s: %w", name, err)
	}
	logger.Info("flock actor spawned", zap.String("name", name), zap.Int("count", cfg.Count))

	g := &Game{
		ctx:          ctx,
		System:       system,
		flockPID:     pid,
		snapshotCh:   snapshotCh,
		lastState:    &Snapshot{Volume: cfg.Volume}, // Avoid nil pointer
		logger:       logger,
		cfg:          cfg,
		camera:       NewCamera(cfg.Volume, ScreenWidth, ScreenHeight),
		tickDuration: time.Duration(cfg.DeltaTime * float64(time.Second)),
		width:        ScreenWidth,
		height:       ScreenHeight,
	}
	g.panel = newControlPanel(cfg, g.respawn)
	g.showBox = g.panel.AddToggle("Show volume", true)
	g.showHeading = g.panel.AddToggle("Show heading", false)
	g.paused = g.panel.AddToggle("Paused", false)
	g.panel.EndSection()
	return g, nil
}

func newControlPanel(cfg *flock.Config, respawn func()) *ui.Panel {
	h := cfg.Volume.HalfExtents
	maxRadius := math.Max(h.X, math.Max(h.Y, h.Z))

	panel := ui.NewPanel(10, 10, 260, ScreenHeight-20, "Flock")
	panel.AddSection("Weights")
	panel.AddSlider("Separation", "separationWeight", 0, 5, cfg.SeparationWeight)
	panel.AddSlider("Alignment", "alignmentWeight", 0, 5, cfg.AlignmentWeight)
	panel.AddSlider("Cohesion", "cohesionWeight", 0, 5, cfg.CohesionWeight)
	panel.EndSection()

	panel.AddSection("Radii & Speed")
	panel.AddSlider("Visible Radius", "visibleRadius", 0, maxRadius, cfg.VisibleRadius)
	panel.AddSlider("Separation Radius", "separationRadius", 0, maxRadius/2, cfg.SeparationRadius)
	panel.AddSlider("Min Speed", "speed", 0, 4*math.Max(cfg.Speed, 1), cfg.Speed)
	panel.EndSection()

	panel.AddSection("Population")
	panel.AddSlider("Agents", "count", 0, float64(cfg.Capacity), float64(cfg.Count))
	panel.AddButton("Respawn", respawn)
	panel.EndSection()

	panel.AddSection("View")
	return panel
}

// tunables collects the slider values keyed like the config file.
func tunables(sliders []*ui.Slider) map[string]any {
	out := make(map[string]any, len(sliders))
	for _, s := range sliders {
		if integerKeys[s.Key] {
			out[s.Key] = math.Round(s.Value)
			continue
		}
		out[s.Key] = s.Value
	}
	return out
}

func (g *Game) respawn() {
	if err := actor.Tell(g.ctx, g.flockPID, RespawnMessage()); err != nil {
		g.logger.Warn("respawn not delivered", zap.Error(err))
	}
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		// Rolling average (exponential moving average)
		g.updateAvg = g.updateAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	g.panel.Update()
	g.handleCamera()

	// Retrieve latest state (non-blocking)
	select {
	case snap := <-g.snapshotCh:
		g.lastState = snap
	default:
	}

	if g.panel.Changed() {
		msg, err := TunablesMessage(tunables(g.panel.Sliders()))
		if err != nil {
			return err
		}
		if err := actor.Tell(g.ctx, g.flockPID, msg); err != nil {
			g.logger.Warn("tunables not delivered", zap.Error(err))
		}
	}

	if !g.paused.Value {
		if err := actor.Tell(g.ctx, g.flockPID, TickMessage(g.tickDuration)); err != nil {
			g.logger.Warn("tick not delivered", zap.Error(err))
		}
	}
	return nil
}

func (g *Game) handleCamera() {
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		g.camera.Orbit(-orbitStep, 0)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		g.camera.Orbit(orbitStep, 0)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		g.camera.Orbit(0, orbitStep)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		g.camera.Orbit(0, -orbitStep)
	}
	if ebiten.IsKeyPressed(ebiten.KeyPageUp) {
		g.camera.Zoom(1 / zoomStep)
	}
	if ebiten.IsKeyPressed(ebiten.KeyPageDown) {
		g.camera.Zoom(zoomStep)
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.drawAvg = g.drawAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	screen.Fill(backgroundColor)

	if g.showBox.Value {
		g.drawVolume(screen, g.lastState.Volume)
	}
	g.drawAgents(screen, g.lastState)

	g.panel.Draw(screen)
	g.drawStats(screen)
}

func (g *Game) drawVolume(screen *ebiten.Image, volume geometry.Box) {
	for _, e := range boxEdges(volume) {
		x0, y0, ok0 := g.camera.Project(e[0])
		x1, y1, ok1 := g.camera.Project(e[1])
		if !ok0 || !ok1 {
			continue
		}
		vector.StrokeLine(screen, float32(x0), float32(y0), float32(x1), float32(y1), 1, boxColor, true)
	}
}

func (g *Game) drawAgents(screen *ebiten.Image, s *Snapshot) {
	for i, p := range s.Positions {
		x, y, ok := g.camera.Project(p)
		if !ok {
			continue
		}
		if g.showHeading.Value {
			tip := p.Add(s.Velocities[i].Mul(0.25))
			if tx, ty, ok := g.camera.Project(tip); ok {
				vector.StrokeLine(screen, float32(x), float32(y), float32(tx), float32(ty), 1, headingColor, true)
			}
		}
		vector.FillRect(screen, float32(x-1.5), float32(y-1.5), 3, 3, agentColor, false)
	}
}

func (g *Game) drawStats(screen *ebiten.Image) {
	s := g.lastState
	var b strings.Builder
	fmt.Fprintf(&b, "FPS: %.2f\nTPS: %.2f\n\n", ebiten.ActualFPS(), ebiten.ActualTPS())
	fmt.Fprintf(&b, "Tick:      %d\nAgents:    %d\nFinder:    %s\nNeighbors: %.1f\nSpeed:     %.2f\n\n",
		s.Tick, len(s.Positions), s.Stats.Finder, s.Stats.MeanNeighbors, s.MeanSpeed)
	for _, r := range s.Stats.Stages {
		fmt.Fprintf(&b, "%-15s %6.2fms\n", r.Name, float64(r.Duration.Microseconds())/1000)
	}
	fmt.Fprintf(&b, "\nUpdate: %.2fms\nDraw:   %.2fms", g.updateAvg, g.drawAvg)
	ebitenutil.DebugPrintAt(screen, b.String(), g.width-220, 10)
}

func (g *Game) Layout(w, h int) (int, int) {
	g.width, g.height = w, h
	g.camera.Resize(w, h)
	return w, h
}

// boxEdges returns the 12 edges of b as pairs of corners.
func boxEdges(b geometry.Box) [12][2]geometry.Vector3D {
	var corners [8]geometry.Vector3D
	lo, hi := b.Min(), b.Max()
	for i := range corners {
		c := lo
		if i&1 != 0 {
			c.X = hi.X
		}
		if i&2 != 0 {
			c.Y = hi.Y
		}
		if i&4 != 0 {
			c.Z = hi.Z
		}
		corners[i] = c
	}

	var edges [12][2]geometry.Vector3D
	n := 0
	for i := range corners {
		for bit := 1; bit < 8; bit <<= 1 {
			if j := i | bit; j != i {
				edges[n] = [2]geometry.Vector3D{corners[i], corners[j]}
				n++
			}
		}
	}
	return edges
}
