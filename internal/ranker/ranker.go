// Package ranker picks the best stored example for a set of keywords.
package ranker

import (
	"context"
	"fmt"

	"github.com/xaenox/lisa-bot/internal/models"
	"github.com/xaenox/lisa-bot/internal/storage"
)

type Ranker struct {
	store storage.ExampleStore
}

func New(store storage.ExampleStore) *Ranker {
	return &Ranker{store: store}
}

// Best returns the matching example with the highest rating. Unrated
// examples count as 0 and ties go to the first example in store order.
func (r *Ranker) Best(ctx context.Context, tokens []string) (*models.Example, bool, error) {
	if len(tokens) == 0 {
		return nil, false, nil
	}

	candidates, err := r.store.SearchExamples(ctx, tokens)
	if err != nil {
		return nil, false, fmt.Errorf("failed to search examples: %w", err)
	}

	best := Select(candidates)
	return best, best != nil, nil
}

// Select applies the ranking rule to an ordered candidate list.
func Select(candidates []*models.Example) *models.Example {
	var best *models.Example
	for _, c := range candidates {
		if best == nil || c.EffectiveRating() > best.EffectiveRating() {
			best = c
		}
	}
	return best
}
