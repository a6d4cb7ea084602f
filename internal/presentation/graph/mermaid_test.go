package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/tutor/internal/presentation/graph"
	"github.com/aretw0/tutor/pkg/domain"
)

func page() *domain.Page {
	return &domain.Page{
		ID: "p",
		Steps: []domain.Step{
			{ID: "word-assign", Strategy: domain.StrategyVerbatim, Hints: []string{"a", "b"}},
			{ID: "name_assign", Strategy: domain.StrategyStructural},
			{ID: "check", Strategy: domain.StrategyPredicate, Requirements: []domain.Requirement{{Condition: `word == "Hello"`}}},
			{ID: "done", Strategy: domain.StrategyVerbatim, Mode: domain.ModeEditor},
		},
	}
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(page(), nil)

	for _, want := range []string{
		"graph TD\n",
		`word_assign["word-assign"]`,
		`word_assign -. "2 hints" .-> word_assign`,
		"word_assign --> name_assign",
		`name_assign[/"name_assign"/]`,
		`check{{"check"}}`,
		`check -. "requires word == 'Hello'" .-> check`,
		`step_done[["done"]]`,
		"step_done --> done",
		`done(("done"))`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(page(), &graph.Overlay{Cursor: 2})
	assert.Contains(t, out, "class word_assign visited;")
	assert.Contains(t, out, "class name_assign visited;")
	assert.Contains(t, out, "class check current;")
	assert.NotContains(t, out, "class step_done")

	done := graph.GenerateMermaid(page(), graph.OverlayOf(&domain.SessionState{Cursor: 4, Status: domain.StatusComplete}))
	assert.Equal(t, 4, strings.Count(done, " visited;"))
	assert.Contains(t, done, "class done current;")
}
