package sequencer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/evaluator"
	"github.com/aretw0/tutor/pkg/sandbox"
	"github.com/aretw0/tutor/pkg/sequencer"
)

func introPage() *domain.Page {
	return &domain.Page{
		ID:    "IntroducingVariables",
		Title: "Introducing Variables",
		Steps: []domain.Step{
			{ID: "word_assign", Strategy: domain.StrategyVerbatim, Text: "Run this code:\n\n__program_indented__", Program: "word = 'Hello'"},
			{ID: "word_check", Strategy: domain.StrategyVerbatim, Text: "Now run `__program__`.", Program: "word",
				Hints: []string{"Type just the name.", "No quotes.", "Type: word"}},
			{ID: "sunshine_undefined_check", Strategy: domain.StrategyVerbatim, Program: "sunshine", AllowFault: sandbox.KindNameError},
		},
		FinalText: "`sunshine` looks like a variable.",
	}
}

func TestSequencer_WalkPage(t *testing.T) {
	ctx := context.Background()
	var attempts, advances, completes int
	hooks := domain.LifecycleHooks{
		OnAttempt:  func(context.Context, *domain.AttemptEvent) { attempts++ },
		OnAdvance:  func(context.Context, *domain.StepEvent) { advances++ },
		OnComplete: func(context.Context, *domain.StepEvent) { completes++ },
	}
	seq := sequencer.New(introPage(), evaluator.New(), "s1", sequencer.WithHooks(hooks))

	assert.Equal(t, "Run this code:\n\n    word = 'Hello'", seq.Prompt())

	fb, err := seq.Submit(ctx, "word='Hello'")
	require.NoError(t, err)
	assert.True(t, fb.Verdict.Passed())
	assert.Equal(t, "word_check", fb.NextStepID)
	assert.Equal(t, "Now run `word`.", fb.Prompt)
	assert.Equal(t, domain.StatusAwaitingInput, fb.Status)

	fb, err = seq.Submit(ctx, "word")
	require.NoError(t, err)
	assert.True(t, fb.Verdict.Passed())
	assert.Equal(t, `"Hello"`, fb.Value)

	fb, err = seq.Submit(ctx, "sunshine")
	require.NoError(t, err)
	assert.True(t, fb.Verdict.Passed())
	assert.True(t, fb.Complete)
	assert.Equal(t, domain.StatusComplete, fb.Status)
	assert.Equal(t, "`sunshine` looks like a variable.", fb.FinalText)
	assert.Contains(t, fb.Fault, "NameError")

	_, err = seq.Submit(ctx, "word")
	assert.ErrorIs(t, err, domain.ErrPageComplete)
	assert.Equal(t, "`sunshine` looks like a variable.", seq.Prompt())

	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, advances)
	assert.Equal(t, 1, completes)
	assert.Equal(t, []string{"word='Hello'", "word", "sunshine"}, seq.State().Replay)
}

func TestSequencer_HintLadder(t *testing.T) {
	ctx := context.Background()
	seq := sequencer.New(introPage(), evaluator.New(), "s1")
	_, err := seq.Submit(ctx, "word = 'Hello'")
	require.NoError(t, err)

	want := []string{"Type just the name.", "No quotes.", "Type: word", "Type: word"}
	for i, hint := range want {
		fb, err := seq.Submit(ctx, "'word'")
		require.NoError(t, err)
		assert.False(t, fb.Verdict.Passed())
		assert.Equal(t, domain.StatusFeedback, fb.Status)
		assert.Equal(t, hint, fb.Hint, "failure %d", i+1)
		assert.Equal(t, i+1, seq.State().Failures["word_check"])
	}

	fb, err := seq.Submit(ctx, "word")
	require.NoError(t, err)
	assert.True(t, fb.Verdict.Passed())
	assert.NotContains(t, seq.State().Failures, "word_check")
}

func TestSequencer_ParseFaultNotReplayed(t *testing.T) {
	ctx := context.Background()
	seq := sequencer.New(introPage(), evaluator.New(), "s1")

	fb, err := seq.Submit(ctx, "word = 'Hello")
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictFailMessage, fb.Verdict.Kind)
	assert.Empty(t, seq.State().Replay)
	assert.Equal(t, 0, seq.Namespace().Len())
}

func TestSequencer_ResetAndRestart(t *testing.T) {
	ctx := context.Background()
	seq := sequencer.New(introPage(), evaluator.New(), "s1")
	_, err := seq.Submit(ctx, "word = 'Hello'")
	require.NoError(t, err)

	seq.Reset()
	assert.Equal(t, 0, seq.Namespace().Len())
	assert.Equal(t, 1, seq.State().Cursor, "reset keeps the cursor")
	assert.Empty(t, seq.State().Replay)

	fb, err := seq.Submit(ctx, "word")
	require.NoError(t, err)
	assert.Equal(t, "NameError: name 'word' is not defined", fb.Verdict.Message)

	seq.Restart()
	st := seq.State()
	assert.Equal(t, 0, st.Cursor)
	assert.Empty(t, st.Failures)
	assert.Equal(t, domain.StatusAwaitingInput, st.Status)
}

func TestSequencer_Restore(t *testing.T) {
	ctx := context.Background()
	ev := evaluator.New()
	live := sequencer.New(introPage(), ev, "s1")
	_, err := live.Submit(ctx, "word = 'Hello'")
	require.NoError(t, err)
	_, err = live.Submit(ctx, "'word'")
	require.NoError(t, err)

	restored, err := sequencer.Restore(ctx, introPage(), ev, live.State())
	require.NoError(t, err)
	assert.True(t, live.Namespace().Equal(restored.Namespace()))
	assert.Equal(t, live.State().Cursor, restored.State().Cursor)

	fb, err := restored.Submit(ctx, "word")
	require.NoError(t, err)
	assert.True(t, fb.Verdict.Passed())

	other := domain.NewSessionState("s2", "OtherPage")
	_, err = sequencer.Restore(ctx, introPage(), ev, other)
	assert.Error(t, err)
}

func TestSequencer_EditorTruncatesReplay(t *testing.T) {
	ctx := context.Background()
	page := &domain.Page{
		ID: "WritingPrograms",
		Steps: []domain.Step{
			{ID: "shell", Strategy: domain.StrategyVerbatim, Program: "x = 1"},
			{ID: "editor", Strategy: domain.StrategyVerbatim, Mode: domain.ModeEditor, Program: "word = 'Hello'\nprint(word)"},
		},
	}
	seq := sequencer.New(page, evaluator.New(), "s1")
	_, err := seq.Submit(ctx, "x = 1")
	require.NoError(t, err)

	fb, err := seq.Submit(ctx, "word = 'Hello'\nprint(word)\n")
	require.NoError(t, err)
	assert.True(t, fb.Complete)
	assert.Equal(t, "Hello\n", fb.Output)
	assert.Equal(t, []string{"word = 'Hello'\nprint(word)\n"}, seq.State().Replay)
	assert.Equal(t, []string{"word"}, seq.Namespace().Names())
}
