package flock

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/octree"
)

//go:embed config.schema.json
var schemaJSON string

var configSchema = jsonschema.MustCompileString("config.schema.json", schemaJSON)

// Config is the host-side description of a flock run. The pipeline itself
// only consumes the values derived from it (Params, Scheduler, finder).
type Config struct {
	// Population
	Capacity int `json:"capacity"` // size of every per-agent buffer
	Count    int `json:"count"`    // active agents at start

	// Scheduling
	BatchSize int    `json:"batchSize"`
	Workers   int    `json:"workers"`   // 0 means GOMAXPROCS
	Neighbors string `json:"neighbors"` // octree, scan or kdtree

	DeltaTime float64 `json:"deltaTime"`
	Seed      int64   `json:"seed"`

	OctreeLeafCapacity int `json:"octreeLeafCapacity"`
	OctreeMaxDepth     int `json:"octreeMaxDepth"`

	// Containment volume, also the octree bounds
	Volume geometry.Box `json:"volume"`

	// Flocking tunables
	SeparationWeight float64 `json:"separationWeight"`
	AlignmentWeight  float64 `json:"alignmentWeight"`
	CohesionWeight   float64 `json:"cohesionWeight"`
	VisibleRadius    float64 `json:"visibleRadius"`
	SeparationRadius float64 `json:"separationRadius"`
	Speed            float64 `json:"speed"`
}

func DefaultConfig() *Config {
	return &Config{
		Capacity:           1000,
		Count:              1000,
		BatchSize:          DefaultBatchSize,
		Workers:            0,
		Neighbors:          FinderOctree,
		DeltaTime:          1.0 / 60,
		Seed:               1,
		OctreeLeafCapacity: octree.DefaultLeafCapacity,
		OctreeMaxDepth:     octree.DefaultMaxDepth,
		Volume: geometry.NewBox(
			geometry.Vector3D{},
			geometry.Vector3D{X: 15, Y: 10, Z: 10},
		),
		SeparationWeight: 1.0,
		AlignmentWeight:  1.0,
		CohesionWeight:   1.0,
		VisibleRadius:    2.0,
		SeparationRadius: 1.0,
		Speed:            2.0,
	}
}

// Params returns the tunables of the config.
func (c *Config) Params() Params {
	return Params{
		SeparationWeight: c.SeparationWeight,
		AlignmentWeight:  c.AlignmentWeight,
		CohesionWeight:   c.CohesionWeight,
		VisibleRadius:    c.VisibleRadius,
		SeparationRadius: c.SeparationRadius,
		Speed:            c.Speed,
		Volume:           c.Volume,
	}
}

// Scheduler returns the batch scheduler described by the config.
func (c *Config) Scheduler() Scheduler {
	return NewScheduler(c.BatchSize, c.Workers)
}

// OctreeOptions returns the octree tuning of the config.
func (c *Config) OctreeOptions() []octree.Option {
	return []octree.Option{
		octree.WithLeafCapacity(c.OctreeLeafCapacity),
		octree.WithMaxDepth(c.OctreeMaxDepth),
	}
}

// NeighborFinder builds the configured neighbor finder.
func (c *Config) NeighborFinder() (NeighborFinder, error) {
	return NewNeighborFinder(c.Neighbors, c.Capacity, c.OctreeOptions()...)
}

// Validate checks the constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.Count > c.Capacity {
		return fmt.Errorf("count %d exceeds capacity %d", c.Count, c.Capacity)
	}
	return nil
}

// Merge overwrites the fields present in doc, a decoded JSON object such as
// a live tunables update. doc is validated against the config schema first.
func (c *Config) Merge(doc map[string]any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode update: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("failed to decode update: %w", err)
	}
	if err := ValidateDocument(v); err != nil {
		return err
	}
	next := *c
	if err := json.Unmarshal(b, &next); err != nil {
		return fmt.Errorf("failed to apply update: %w", err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// ValidateDocument validates a decoded JSON document against the embedded
// config schema.
func ValidateDocument(doc any) error {
	if err := configSchema.Validate(doc); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// LoadConfig loads a .json or .toml configuration file, validates it
// against the embedded schema and applies it over DefaultConfig.
func LoadConfig(configFile string) (*Config, error) {
	return loadConfig(configFile, configSchema)
}

// LoadConfigWithSchema is LoadConfig with an external JSON schema file.
func LoadConfigWithSchema(configFile string, schemaFile string) (*Config, error) {
	sch, err := jsonschema.Compile(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return loadConfig(configFile, sch)
}

func loadConfig(configFile string, sch *jsonschema.Schema) (*Config, error) {
	// 1. Read and decode to a generic document, TOML going through JSON so
	// that numbers reach the validator as JSON numbers
	b, err := readDocument(configFile)
	if err != nil {
		return nil, err
	}

	// 2. Validate
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 3. Unmarshal over the defaults
	cfg := DefaultConfig()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readDocument(configFile string) ([]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(configFile)); ext {
	case ".json":
		b, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		return b, nil
	case ".toml":
		var doc map[string]any
		if _, err := toml.DecodeFile(configFile, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode config toml: %w", err)
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert config toml: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("unsupported config format " + ext + ", want .json or .toml")
	}
}
