package flock

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultBatchSize = 64

// Stage is one step of the tick chain. Batch runs concurrently over
// disjoint index ranges [start, end); Serial, when set, runs once after
// every batch of the stage has returned and before the next stage starts.
type Stage struct {
	Name   string
	Batch  func(start, end int)
	Serial func()
}

// StageReport describes how one stage ran.
type StageReport struct {
	Name     string
	Batches  int
	Duration time.Duration
}

// Scheduler fans each stage out over batches of agent indices and joins
// them before moving to the next stage.
type Scheduler struct {
	BatchSize int // agents per batch
	Workers   int // concurrent batches, 0 means GOMAXPROCS
}

// NewScheduler returns a scheduler, replacing non-positive values with
// the defaults.
func NewScheduler(batchSize, workers int) Scheduler {
	s := Scheduler{BatchSize: batchSize, Workers: workers}
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultBatchSize
	}
	if s.Workers <= 0 {
		s.Workers = runtime.GOMAXPROCS(0)
	}
	return s
}

func (s Scheduler) batchSize() int {
	if s.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}

func (s Scheduler) workers() int {
	if s.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return s.Workers
}

// Batches returns the number of batches n indices are split into.
func (s Scheduler) Batches(n int) int {
	if n <= 0 {
		return 0
	}
	size := s.batchSize()
	return (n + size - 1) / size
}

// Run executes the stages in order over [0, n). The context is only checked
// before the first stage: once started, a tick runs to completion. A panic
// inside a batch is returned as an error naming the stage and the range,
// and the remaining stages are not run.
func (s Scheduler) Run(ctx context.Context, n int, stages ...Stage) ([]StageReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tick skipped: %w", err)
	}

	reports := make([]StageReport, 0, len(stages))
	for _, st := range stages {
		start := time.Now()
		if err := s.runStage(n, st); err != nil {
			return reports, err
		}
		reports = append(reports, StageReport{
			Name:     st.Name,
			Batches:  s.Batches(n),
			Duration: time.Since(start),
		})
	}
	return reports, nil
}

func (s Scheduler) runStage(n int, st Stage) error {
	if st.Batch != nil && n > 0 {
		size := s.batchSize()

		var g errgroup.Group
		g.SetLimit(s.workers())
		for start := 0; start < n; start += size {
			end := min(start+size, n)
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("stage %s batch [%d,%d): %v", st.Name, start, end, r)
					}
				}()
				st.Batch(start, end)
				return nil
			})
		}
		// barrier: every write of this stage is visible after Wait
		if err := g.Wait(); err != nil {
			return err
		}
	}
	if st.Serial != nil {
		st.Serial()
	}
	return nil
}
