package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tutor"
	httpAdapter "github.com/aretw0/tutor/pkg/adapters/http"
	"github.com/aretw0/tutor/pkg/adapters/memory"
	"github.com/aretw0/tutor/pkg/domain"
)

const page = `
id: IntroducingVariables
title: Introducing Variables
final_text: Done.
steps:
  - id: word_assign
    text: Run ` + "`__program__`" + `.
    program: word = 'Hello'
  - id: word_check
    program: word
    hints: [Type just the name.]
`

func newEngine(t *testing.T) *tutor.Engine {
	t.Helper()
	eng, err := tutor.New("", tutor.WithLoader(memory.NewLoader(map[string]string{"IntroducingVariables": page})))
	require.NoError(t, err)
	return eng
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, &buf))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func TestServer_Health(t *testing.T) {
	h := httpAdapter.NewHandler(newEngine(t), httpAdapter.WithVersion("1.2.3"))

	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/info", nil)
	assert.Equal(t, "1.2.3", decode[map[string]string](t, w)["version"])
}

func TestServer_Pages(t *testing.T) {
	h := httpAdapter.NewHandler(newEngine(t))

	w := do(t, h, http.MethodGet, "/pages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []domain.PageSummary{{ID: "IntroducingVariables", Title: "Introducing Variables", Steps: 2}},
		decode[[]domain.PageSummary](t, w))

	w = do(t, h, http.MethodGet, "/pages/IntroducingVariables", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Type just the name", "hints must not leak")
	outline := decode[httpAdapter.PageOutline](t, w)
	require.Len(t, outline.Steps, 2)
	assert.Equal(t, "Run `word = 'Hello'`.", outline.Steps[0].Prompt)

	w = do(t, h, http.MethodGet, "/pages/Nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_SessionFlow(t *testing.T) {
	h := httpAdapter.NewHandler(newEngine(t))

	w := do(t, h, http.MethodPost, "/sessions", httpAdapter.StartRequest{PageID: "IntroducingVariables"})
	require.Equal(t, http.StatusCreated, w.Code)
	view := decode[domain.SessionView](t, w)
	id := view.State.SessionID
	assert.Equal(t, "word_assign", view.StepID)

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/submit", httpAdapter.SubmitRequest{Source: "word = 'Hello'\r\n"})
	require.Equal(t, http.StatusOK, w.Code)
	fb := decode[domain.Feedback](t, w)
	assert.True(t, fb.Verdict.Passed())
	assert.Equal(t, "word_check", fb.NextStepID)

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/submit", httpAdapter.SubmitRequest{Source: "'word'"})
	fb = decode[domain.Feedback](t, w)
	assert.False(t, fb.Verdict.Passed())
	assert.Equal(t, "Type just the name.", fb.Hint)

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[domain.SessionView](t, w).State.Cursor)

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/restart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[domain.SessionView](t, w).State.Cursor)

	w = do(t, h, http.MethodGet, "/sessions", nil)
	assert.Equal(t, []string{id}, decode[[]string](t, w))

	w = do(t, h, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ErrorStatuses(t *testing.T) {
	h := httpAdapter.NewHandler(newEngine(t))

	w := do(t, h, http.MethodPost, "/sessions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/sessions", httpAdapter.StartRequest{PageID: "Nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/sessions/missing/submit", httpAdapter.SubmitRequest{Source: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/sessions/missing/submit", httpAdapter.SubmitRequest{Source: strings.Repeat("a", 20<<10)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_SubmitBodyIsCapped(t *testing.T) {
	h := httpAdapter.NewHandler(newEngine(t))

	w := do(t, h, http.MethodPost, "/sessions", httpAdapter.StartRequest{PageID: "IntroducingVariables"})
	id := decode[domain.SessionView](t, w).State.SessionID

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/submit", httpAdapter.SubmitRequest{Source: strings.Repeat("a", 1<<20)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "too large")

	// The encoder writes each '<' as \u003c, so this source grows sixfold on
	// the wire while staying under the input limit.
	w = do(t, h, http.MethodPost, "/sessions/"+id+"/submit", httpAdapter.SubmitRequest{Source: "word = 'Hello'  # " + strings.Repeat("<", 15<<10)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[domain.Feedback](t, w).Verdict.Passed())
}

func TestServer_CompletePageConflicts(t *testing.T) {
	h := httpAdapter.NewHandler(newEngine(t))

	w := do(t, h, http.MethodPost, "/sessions", httpAdapter.StartRequest{PageID: "IntroducingVariables"})
	id := decode[domain.SessionView](t, w).State.SessionID
	do(t, h, http.MethodPost, "/sessions/"+id+"/submit", httpAdapter.SubmitRequest{Source: "word = 'Hello'"})
	w = do(t, h, http.MethodPost, "/sessions/"+id+"/submit", httpAdapter.SubmitRequest{Source: "word"})
	assert.True(t, decode[domain.Feedback](t, w).Complete)

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/submit", httpAdapter.SubmitRequest{Source: "word"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tutor_attempts_total 1\n"))
	})
	h := httpAdapter.NewHandler(newEngine(t), httpAdapter.WithMetricsHandler(metrics))

	w := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Contains(t, w.Body.String(), "tutor_attempts_total")
}

// watchingEngine reports page reloads from a fixed channel.
type watchingEngine struct {
	*tutor.Engine
	events chan string
}

func (e *watchingEngine) Watch(context.Context) (<-chan string, error) { return e.events, nil }

func TestSubscribeEvents_Global(t *testing.T) {
	events := make(chan string, 1)
	events <- "IntroducingVariables"
	close(events)
	h := httpAdapter.NewHandler(&watchingEngine{Engine: newEngine(t), events: events})

	w := do(t, h, http.MethodGet, "/events", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event: ping")
	assert.Contains(t, w.Body.String(), "data: IntroducingVariables")
}

func TestSubscribeEvents_Session(t *testing.T) {
	h := httpAdapter.NewHandler(newEngine(t))

	w := do(t, h, http.MethodPost, "/sessions", httpAdapter.StartRequest{PageID: "IntroducingVariables"})
	id := decode[domain.SessionView](t, w).State.SessionID

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(sub, httptest.NewRequest(http.MethodGet, "/events?session_id="+id+"&watch=cursor", nil).WithContext(ctx))
	}()
	time.Sleep(100 * time.Millisecond) // Wait for subscription to register

	// A failed attempt does not move the cursor and is filtered out.
	do(t, h, http.MethodPost, "/sessions/"+id+"/submit", httpAdapter.SubmitRequest{Source: "oops = 1"})
	do(t, h, http.MethodPost, "/sessions/"+id+"/submit", httpAdapter.SubmitRequest{Source: "word = 'Hello'"})

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	output := sub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `"cursor":1`)
	assert.Equal(t, 1, strings.Count(output, "data: {"), output)
}
