package optim

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/drivectl/internal/experiment"
)

var ErrNoCandidates = errors.New("optim: no candidate completed")

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: runtime.NumCPU()}
}

// SetWorkers bounds how many candidate runs execute at once.
func (g *GridSearch) SetWorkers(n int) {
	if n > 0 {
		g.workers = n
	}
}

// Candidates enumerates every point of the grid in order.
func (g *GridSearch) Candidates() []map[string]float64 {
	out := []map[string]float64{{}}
	for depth, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(out)*len(g.ranges[depth]))
		for _, base := range out {
			for _, val := range g.ranges[depth] {
				p := make(map[string]float64, len(base)+1)
				for k, v := range base {
					p[k] = v
				}
				p[name] = val
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}

// Search runs every candidate and returns the one with the lowest value of
// metricName. Candidates whose build or run fails are skipped; ties keep
// the earlier grid point.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (map[string]float64, float64, error) {
	candidates := g.Candidates()
	scores := make([]float64, len(candidates))

	var mu sync.Mutex
	completed := 0

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for i, params := range candidates {
		i, params := i, params
		scores[i] = math.Inf(1)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			exp, err := buildExperiment(params)
			if err != nil {
				return nil
			}
			result, err := exp.Run(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}
			val, ok := result.Metrics[metricName]
			if !ok || math.IsNaN(val) {
				return nil
			}

			mu.Lock()
			scores[i] = val
			completed++
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, math.Inf(1), err
	}
	if completed == 0 {
		return nil, math.Inf(1), ErrNoCandidates
	}

	best := 0
	for i := range scores {
		if scores[i] < scores[best] {
			best = i
		}
	}
	return candidates[best], scores[best], nil
}
