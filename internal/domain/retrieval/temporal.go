package retrieval

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
)

// digitRun matches maximal runs of digits; a run is a year token when it
// is exactly four digits starting with "20". Underscores and letters around
// the run do not prevent a match, so "report_2021.pdf" carries 2021.
var digitRun = regexp.MustCompile(`\d+`)

// ExtractYears returns the distinct year tokens of s in order of first occurrence.
func ExtractYears(s string) []string {
	var years []string
	seen := make(map[string]bool)
	for _, run := range digitRun.FindAllString(s, -1) {
		if len(run) != 4 || !strings.HasPrefix(run, "20") || seen[run] {
			continue
		}
		seen[run] = true
		years = append(years, run)
	}
	return years
}

// Disambiguator overrides plain similarity ranking when a query names years.
type Disambiguator struct{}

// NewDisambiguator returns a Disambiguator.
func NewDisambiguator() *Disambiguator {
	return &Disambiguator{}
}

// Select picks the contexts for query from ranked, which must be sorted by
// descending score. It fails with ErrNoMatch when ranked is empty.
//
//   - no year in the query: the top match.
//   - one year: the best chunk whose source file contains it, else the best
//     chunk of the closest year found in source files, else the top match.
//   - several years: the best chunk per year, in query order, skipping years
//     with no chunk; the top match when no year has one.
func (d *Disambiguator) Select(query string, ranked []entities.ScoredChunk) (entities.Selection, error) {
	if len(ranked) == 0 {
		return entities.Selection{}, entities.ErrNoMatch
	}

	years := ExtractYears(query)
	sel := entities.Selection{Years: years}

	switch len(years) {
	case 0:
		sel.Mode = entities.ModeTop
		sel.Chunks = []entities.ScoredChunk{ranked[0]}

	case 1:
		if best, ok := firstWithYear(ranked, years[0]); ok {
			sel.Mode = entities.ModeExactYear
			sel.Chunks = []entities.ScoredChunk{best}
		} else if best, ok := closestYear(ranked, years[0]); ok {
			sel.Mode = entities.ModeClosestYear
			sel.Chunks = []entities.ScoredChunk{best}
		} else {
			sel.Mode = entities.ModeFallback
			sel.Chunks = []entities.ScoredChunk{ranked[0]}
		}

	default:
		for _, y := range years {
			if best, ok := firstWithYear(ranked, y); ok {
				sel.Chunks = append(sel.Chunks, best)
			}
		}
		if len(sel.Chunks) > 0 {
			sel.Mode = entities.ModeMultiYear
		} else {
			sel.Mode = entities.ModeFallback
			sel.Chunks = []entities.ScoredChunk{ranked[0]}
		}
	}

	return sel, nil
}

func firstWithYear(ranked []entities.ScoredChunk, year string) (entities.ScoredChunk, bool) {
	for _, sc := range ranked {
		if strings.Contains(sc.SourceFile, year) {
			return sc, true
		}
	}
	return entities.ScoredChunk{}, false
}

// closestYear finds the source file year nearest to target, taking the
// first year token of each file name, then returns the highest ranked chunk
// whose file name contains that year. Ties between years go to the one
// ranked first.
func closestYear(ranked []entities.ScoredChunk, target string) (entities.ScoredChunk, bool) {
	want, err := strconv.Atoi(target)
	if err != nil {
		return entities.ScoredChunk{}, false
	}

	var (
		nearest  string
		bestDist = -1
	)
	for _, sc := range ranked {
		fileYears := ExtractYears(sc.SourceFile)
		if len(fileYears) == 0 {
			continue
		}
		y, err := strconv.Atoi(fileYears[0])
		if err != nil {
			continue
		}
		dist := y - want
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			nearest, bestDist = fileYears[0], dist
		}
	}
	if bestDist < 0 {
		return entities.ScoredChunk{}, false
	}
	return firstWithYear(ranked, nearest)
}
