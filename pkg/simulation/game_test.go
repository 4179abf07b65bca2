package simulation

import (
	"testing"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/ui"
)

func TestBoxEdges(t *testing.T) {
	b := geometry.NewBox(geometry.Vector3D{X: 1}, geometry.Vector3D{X: 3, Y: 2, Z: 1})
	lengths := map[float64]int{}
	seen := map[[2]geometry.Vector3D]bool{}
	for _, e := range boxEdges(b) {
		if seen[e] {
			t.Fatalf("edge %v listed twice", e)
		}
		seen[e] = true
		lengths[e[0].DistanceTo(e[1])]++
	}
	want := map[float64]int{6: 4, 4: 4, 2: 4}
	for l, n := range want {
		if lengths[l] != n {
			t.Errorf("%d edges of length %v, want %d (got %v)", lengths[l], l, n, lengths)
		}
	}
}

func TestTunables_MatchConfigSchema(t *testing.T) {
	cfg := flock.DefaultConfig()
	panel := newControlPanel(cfg, func() {})
	sliders := panel.Sliders()
	for _, s := range sliders {
		if s.Key == "count" {
			s.Set(123.6)
		}
	}

	doc := tunables(sliders)
	if doc["count"] != 124.0 {
		t.Errorf("count = %v, want it rounded to 124", doc["count"])
	}
	if err := flock.ValidateDocument(doc); err != nil {
		t.Fatalf("slider values rejected by the schema: %v", err)
	}
	if err := cfg.Merge(doc); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if cfg.Count != 124 {
		t.Errorf("Count = %d after merge", cfg.Count)
	}
}

func TestTunables_OneEntryPerSlider(t *testing.T) {
	sliders := []*ui.Slider{
		ui.NewSlider(0, 0, 10, "A", "alignmentWeight", 0, 5, 2),
		ui.NewSlider(0, 0, 10, "W", "workers", 0, 16, 3.4),
	}
	doc := tunables(sliders)
	if len(doc) != 2 || doc["alignmentWeight"] != 2.0 || doc["workers"] != 3.0 {
		t.Errorf("tunables() = %v", doc)
	}
}
