package retrieval

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_EmptyInput(t *testing.T) {
	assert.Empty(t, NewChunker(0).Split(""))
}

func TestChunker_SingleChunkGetsTrailingPeriod(t *testing.T) {
	chunks := NewChunker(0).Split("First sentence. Second sentence. Third")

	assert.Equal(t, []string{"First sentence. Second sentence. Third."}, chunks)
}

func TestChunker_ClosesBufferAtLimit(t *testing.T) {
	chunks := NewChunker(10).Split("aaaa. bbbb. cccc")

	assert.Equal(t, []string{"aaaa. bbbb.", "cccc."}, chunks)
}

func TestChunker_OversizedSentenceEmittedWhole(t *testing.T) {
	long := strings.Repeat("x", 50)

	chunks := NewChunker(10).Split("ab. " + long + ". cd")

	require.Len(t, chunks, 3)
	assert.Equal(t, "ab.", chunks[0])
	assert.Equal(t, long+".", chunks[1])
	assert.Equal(t, "cd.", chunks[2])
}

func TestChunker_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultMaxChunkLength, NewChunker(-1).MaxLength())
	assert.Equal(t, 25, NewChunker(25).MaxLength())
}

func TestChunker_LengthAndReconstruction(t *testing.T) {
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"}
	var sentences []string
	for i := 0; i < 120; i++ {
		n := 1 + i%6
		var parts []string
		for j := 0; j < n; j++ {
			parts = append(parts, words[(i+j)%len(words)])
		}
		sentences = append(sentences, strings.Join(parts, " "))
	}
	text := strings.Join(sentences, ". ")

	for _, maxLength := range []int{20, 64, 150, 4000} {
		chunks := NewChunker(maxLength).Split(text)
		require.NotEmpty(t, chunks)

		var rebuilt []string
		for _, c := range chunks {
			require.True(t, strings.HasSuffix(c, "."))
			body := strings.TrimSuffix(c, ".")
			if strings.Contains(body, ". ") {
				// Separator and trailing period are the only overshoot.
				assert.LessOrEqual(t, utf8.RuneCountInString(c), maxLength+2, "maxLength=%d chunk=%q", maxLength, c)
			}
			rebuilt = append(rebuilt, strings.Split(body, ". ")...)
		}
		assert.Equal(t, sentences, rebuilt, "maxLength=%d", maxLength)
	}
}

func TestChunker_CountsRunesNotBytes(t *testing.T) {
	// 4 runes, 8 bytes each side
	chunks := NewChunker(10).Split("éééé. üüüü")

	assert.Equal(t, []string{"éééé. üüüü."}, chunks)
}
