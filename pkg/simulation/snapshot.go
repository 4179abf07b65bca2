package simulation

import (
	"time"

	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// RespawnCommand asks the flock actor to scatter a fresh population.
const RespawnCommand = "respawn"

// Snapshot is the state handed to the viewer after every tick. Its slices
// are copies: the actor keeps mutating its own buffers.
type Snapshot struct {
	Tick       uint64
	Positions  []geometry.Vector3D
	Velocities []geometry.Vector3D
	Volume     geometry.Box
	Centroid   geometry.Vector3D
	MeanSpeed  float64
	Stats      flock.TickStats
}

func newSnapshot(tick uint64, f *Flock, volume geometry.Box, stats flock.TickStats) *Snapshot {
	return &Snapshot{
		Tick:       tick,
		Positions:  append([]geometry.Vector3D(nil), f.Positions[:f.Count]...),
		Velocities: append([]geometry.Vector3D(nil), f.Velocities[:f.Count]...),
		Volume:     volume,
		Centroid:   f.Centroid(),
		MeanSpeed:  f.MeanSpeed(),
		Stats:      stats,
	}
}

// TickMessage triggers one simulation step of length dt. A zero dt uses
// the configured delta time.
func TickMessage(dt time.Duration) *durationpb.Duration {
	return durationpb.New(dt)
}

// TunablesMessage carries a partial config document, keyed like the config
// file.
func TunablesMessage(values map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(values)
}

// StateRequest asks for a StateReply.
func StateRequest() *emptypb.Empty {
	return &emptypb.Empty{}
}

func RespawnMessage() *wrapperspb.StringValue {
	return wrapperspb.String(RespawnCommand)
}

// StateReply is the decoded answer to a StateRequest.
type StateReply struct {
	Tick          uint64
	Count         int
	Finder        string
	MeanNeighbors float64
	Centroid      geometry.Vector3D
}

func (r StateReply) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"tick":          r.Tick,
		"count":         r.Count,
		"finder":        r.Finder,
		"meanNeighbors": r.MeanNeighbors,
		"centroid": map[string]any{
			"x": r.Centroid.X,
			"y": r.Centroid.Y,
			"z": r.Centroid.Z,
		},
	})
}

// ParseStateReply decodes the struct sent back for a StateRequest.
func ParseStateReply(s *structpb.Struct) StateReply {
	f := s.GetFields()
	c := f["centroid"].GetStructValue().GetFields()
	return StateReply{
		Tick:          uint64(f["tick"].GetNumberValue()),
		Count:         int(f["count"].GetNumberValue()),
		Finder:        f["finder"].GetStringValue(),
		MeanNeighbors: f["meanNeighbors"].GetNumberValue(),
		Centroid: geometry.Vector3D{
			X: c["x"].GetNumberValue(),
			Y: c["y"].GetNumberValue(),
			Z: c["z"].GetNumberValue(),
		},
	}
}
