package generator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/qninhdt/rpg-forge/internal/content"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
)

// MaxBatchSize bounds a single bulk request
const MaxBatchSize = 20

const defaultBatchConcurrency = 4

// BatchItem is one entry of a bulk generation
type BatchItem struct {
	Type          content.Type              `json:"type"`
	Scenario      string                    `json:"scenario"`
	AdvancedInput *content.AdvancedInput    `json:"advancedInput,omitempty"`
	Params        *content.GenerationParams `json:"params,omitempty"`
}

// BatchResult pairs an item with its outcome. Error is set when the item
// itself was rejected.
type BatchResult struct {
	Index  int     `json:"index"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// GenerateBatch runs independent generations with at most concurrency in
// flight. Results keep the order of items. A configuration error stops the
// whole batch since every remaining item would hit it too.
func (s *Service) GenerateBatch(ctx context.Context, items []BatchItem, concurrency int) ([]BatchResult, error) {
	if len(items) == 0 {
		return nil, rpgerr.InvalidArgument("batch is empty")
	}
	if len(items) > MaxBatchSize {
		return nil, rpgerr.InvalidArgumentf("at most %d items per batch", MaxBatchSize)
	}
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	results := make([]BatchResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range items {
		item := items[i]
		results[i].Index = i
		g.Go(func() error {
			res, err := s.Generate(gctx, item.Scenario, item.Type, item.AdvancedInput, item.Params)
			switch {
			case err == nil:
				results[i].Result = res
			case rpgerr.IsConfiguration(err):
				return err
			default:
				results[i].Error = err.Error()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
