package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
)

type fakeAnswerer struct {
	got    string
	answer *entities.Answer
	err    error
}

func (f *fakeAnswerer) Query(_ context.Context, req entities.QueryRequest) (*entities.Answer, error) {
	f.got = req.Query
	return f.answer, f.err
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(Model)
	}
	return m
}

func TestModel_ViewBeforeSize(t *testing.T) {
	m := New(context.Background(), &fakeAnswerer{}, 0)

	assert.Equal(t, "Loading...", m.View())
}

func TestModel_AskAndAnswer(t *testing.T) {
	svc := &fakeAnswerer{answer: &entities.Answer{
		Text: "Revenue was 12M.",
		Selection: entities.Selection{
			Mode:   entities.ModeExactYear,
			Years:  []string{"2022"},
			Chunks: []entities.ScoredChunk{{Chunk: entities.Chunk{Title: "report_2022.pdf - Part 1"}, Score: 0.9}},
		},
	}}
	m := sized(t, New(context.Background(), svc, 0))
	m = typeText(m, "revenue 2022")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	// run the query command directly instead of through the batch
	msg := m.ask("revenue 2022")()
	assert.Equal(t, "revenue 2022", svc.got)

	updated, _ = m.Update(msg)
	m = updated.(Model)
	assert.False(t, m.busy)
	require.Len(t, m.history, 1)
	assert.Contains(t, m.status, "mode exact-year")
	assert.Contains(t, m.renderHistory(), "Revenue was 12M.")
	assert.Contains(t, m.renderHistory(), "report_2022.pdf - Part 1 (0.9000)")
}

func TestModel_ErrorAnswer(t *testing.T) {
	m := sized(t, New(context.Background(), &fakeAnswerer{}, 0))

	updated, _ := m.Update(answerMsg{query: "anything", err: entities.ErrNoMatch})
	m = updated.(Model)

	assert.Contains(t, m.status, "no similar documents found")
	assert.Contains(t, m.renderHistory(), "no similar documents found")
}

func TestModel_EnterIgnoredWhenEmptyOrBusy(t *testing.T) {
	m := sized(t, New(context.Background(), &fakeAnswerer{err: errors.New("unused")}, 0))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	m = typeText(m, "q")
	m.busy = true
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestModel_Quit(t *testing.T) {
	m := New(context.Background(), &fakeAnswerer{}, 0)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
