package retrieval

import (
	"fmt"
	"math"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
)

// CosineSimilarity returns dot(a,b) / (|a|*|b|).
// Vectors of different length fail with ErrDimensionMismatch. A zero
// magnitude vector yields NaN, which rankers treat as a non-match.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", entities.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return math.NaN(), nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
