package observability_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tutor"
	"github.com/aretw0/tutor/pkg/adapters/memory"
	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnAttempt(ctx, &domain.AttemptEvent{
		EventBase: domain.EventBase{PageID: "p"},
		StepID:    "s",
		Verdict:   domain.VerdictFailMessage,
		FaultKind: "NameError",
	})
	hooks.OnAdvance(ctx, &domain.StepEvent{EventBase: domain.EventBase{PageID: "p"}, FromStepID: "s", ToStepID: "t"})
	hooks.OnComplete(ctx, &domain.StepEvent{EventBase: domain.EventBase{PageID: "p"}, FromStepID: "t"})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `tutor_attempts_total{fault_kind="NameError",page_id="p",verdict="fail_message"} 1`)
	assert.Contains(t, string(body), `tutor_step_advances_total{page_id="p",step_id="s"} 1`)
	assert.Contains(t, string(body), `tutor_page_completions_total{page_id="p"} 1`)
	assert.Contains(t, string(body), `tutor_attempt_duration_seconds_count{page_id="p"} 1`)
}

func TestMetrics_EngineIntegration(t *testing.T) {
	m := observability.NewMetrics()
	loader := memory.NewLoader(map[string]string{
		"p": "id: p\nsteps:\n  - {id: a, program: x = 1}\n  - {id: b, program: x}",
	})
	eng, err := tutor.New("", tutor.WithLoader(loader), tutor.WithLifecycleHooks(m.Hooks()))
	require.NoError(t, err)

	ctx := context.Background()
	view, err := eng.StartSession(ctx, "p")
	require.NoError(t, err)
	id := view.State.SessionID

	for _, src := range []string{"y = 1", "x = 1", "x"} {
		_, err := eng.Submit(ctx, id, src)
		require.NoError(t, err)
	}

	problems, err := testutil.GatherAndLint(m.Registry())
	require.NoError(t, err)
	assert.Empty(t, problems)

	count, err := testutil.GatherAndCount(m.Registry(), "tutor_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series for the failure, one for the passes")
}
