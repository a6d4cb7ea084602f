package tutor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tutor"
	"github.com/aretw0/tutor/internal/testutils"
	"github.com/aretw0/tutor/pkg/domain"
)

func openLessons(t *testing.T) *tutor.Engine {
	t.Helper()
	eng, err := tutor.New(testutils.CopyLessons(t, "examples/lessons"))
	require.NoError(t, err)
	return eng
}

func TestLessons_AllCompile(t *testing.T) {
	eng := openLessons(t)
	ctx := context.Background()

	require.NoError(t, eng.Validate(ctx))

	pages, err := eng.ListPages(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(pages))
	for _, p := range pages {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{
		"IntroducingVariables",
		"UsingVariables",
		"WritingPrograms",
		"StoringCalculationsInVariables",
	}, ids)
}

func TestLessons_IntroducingVariables(t *testing.T) {
	eng := openLessons(t)
	ctx := context.Background()

	view, err := eng.StartSession(ctx, "IntroducingVariables")
	require.NoError(t, err)
	id := view.State.SessionID
	assert.Contains(t, view.Prompt, "    word = 'Hello'")

	fb, err := eng.Submit(ctx, id, "word = Hello")
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictFailMessage, fb.Verdict.Kind)
	assert.Contains(t, fb.Verdict.Message, "needs quotes")

	for _, input := range []string{"word = 'Hello'", "word", "'word'"} {
		fb, err = eng.Submit(ctx, id, input)
		require.NoError(t, err)
		require.True(t, fb.Verdict.Passed(), input)
	}

	fb, err = eng.Submit(ctx, id, "sunshine")
	require.NoError(t, err)
	assert.True(t, fb.Verdict.Passed())
	assert.Contains(t, fb.Fault, "NameError")
	assert.True(t, fb.Complete)
	assert.Contains(t, fb.FinalText, "looks like a variable")
}

func TestLessons_UsingVariablesRequiresWord(t *testing.T) {
	eng := openLessons(t)
	ctx := context.Background()

	view, err := eng.StartSession(ctx, "UsingVariables")
	require.NoError(t, err)
	id := view.State.SessionID

	fb, err := eng.Submit(ctx, id, "name = ''")
	require.NoError(t, err)
	assert.Equal(t, "Choose a non-empty string", fb.Verdict.Message)

	fb, err = eng.Submit(ctx, id, "name = 'Ann'")
	require.NoError(t, err)
	require.True(t, fb.Verdict.Passed())

	fb, err = eng.Submit(ctx, id, "'Hello ' + name")
	require.NoError(t, err)
	require.True(t, fb.Verdict.Passed())
	assert.Equal(t, `"Hello Ann"`, fb.Value)

	fb, err = eng.Submit(ctx, id, "word + name")
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictRetryNeeded, fb.Verdict.Kind)
	assert.Contains(t, fb.Verdict.Message, "word = 'Hello'")
}

func TestLessons_WritingProgramsEditor(t *testing.T) {
	eng := openLessons(t)
	ctx := context.Background()

	view, err := eng.StartSession(ctx, "WritingPrograms")
	require.NoError(t, err)

	program := "word = 'Hello'\nname = 'World'\nprint(word + ' ' + name)\nword = 'Goodbye'\nprint(word + ' ' + name)"
	fb, err := eng.Submit(ctx, view.State.SessionID, program)
	require.NoError(t, err)
	require.True(t, fb.Verdict.Passed())
	assert.Equal(t, "Hello World\nGoodbye World\n", fb.Output)
	assert.True(t, fb.Complete)
}
