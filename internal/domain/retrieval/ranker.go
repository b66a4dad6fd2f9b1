package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
)

// Scorer assigns a similarity score to every chunk for a query vector.
// The returned slice is in input order; NaN marks a non-match.
type Scorer interface {
	ScoreAll(ctx context.Context, query []float32, chunks []entities.Chunk) ([]entities.ScoredChunk, error)
}

// BruteForceScorer scans every chunk with CosineSimilarity.
type BruteForceScorer struct{}

// ScoreAll implements Scorer.
func (BruteForceScorer) ScoreAll(ctx context.Context, query []float32, chunks []entities.Chunk) ([]entities.ScoredChunk, error) {
	scored := make([]entities.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !c.HasEmbedding() {
			scored = append(scored, entities.ScoredChunk{Chunk: c, Score: math.NaN()})
			continue
		}
		score, err := CosineSimilarity(query, c.Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		scored = append(scored, entities.ScoredChunk{Chunk: c, Score: score})
	}
	return scored, nil
}

// Ranker orders a store snapshot by similarity to a query.
type Ranker struct {
	scorer Scorer
}

// NewRanker returns a Ranker using scorer, or BruteForceScorer when nil.
func NewRanker(scorer Scorer) *Ranker {
	if scorer == nil {
		scorer = BruteForceScorer{}
	}
	return &Ranker{scorer: scorer}
}

// Rank scores chunks, drops non-matches and sorts by descending score.
// Equal scores keep their store order.
func (r *Ranker) Rank(ctx context.Context, query []float32, chunks []entities.Chunk) ([]entities.ScoredChunk, error) {
	scored, err := r.scorer.ScoreAll(ctx, query, chunks)
	if err != nil {
		return nil, err
	}

	ranked := scored[:0]
	for _, sc := range scored {
		if math.IsNaN(sc.Score) {
			continue
		}
		ranked = append(ranked, sc)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}
