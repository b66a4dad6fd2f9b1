package retrieval

import (
	"fmt"
	"strings"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
)

// Composer renders the completion prompt for the selected contexts.
type Composer struct{}

// NewComposer returns a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Compose builds a single-context prompt for one chunk and a year
// comparison prompt for several. Descriptions are included in full.
func (c *Composer) Compose(query string, selected []entities.ScoredChunk) (string, error) {
	switch len(selected) {
	case 0:
		return "", entities.ErrNoMatch
	case 1:
		sc := selected[0]
		return fmt.Sprintf("Based on this context from %s (Match Score: %.4f):\n%s\n\nQuery: %s\n\nAnswer:",
			sc.SourceFile, sc.Score, sc.Description, query), nil
	}

	entries := make([]string, len(selected))
	for i, sc := range selected {
		entries[i] = fmt.Sprintf("Context from %s (Match Score: %.4f):\n%s", sc.SourceFile, sc.Score, sc.Description)
	}

	var sb strings.Builder
	sb.WriteString("Based on these contexts from different years:\n\n")
	sb.WriteString(strings.Join(entries, "\n\n"))
	sb.WriteString("\n\nQuery: ")
	sb.WriteString(query)
	sb.WriteString("\n\nPlease provide a detailed comparison, specifically highlighting the differences between the years mentioned. Answer:")
	return sb.String(), nil
}
