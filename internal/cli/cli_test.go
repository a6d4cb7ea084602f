package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tutor/pkg/adapters/file"
	"github.com/aretw0/tutor/pkg/adapters/memory"
	"github.com/aretw0/tutor/pkg/adapters/redis"
	"github.com/aretw0/tutor/pkg/domain"
)

const lesson = `---
id: IntroducingVariables
title: Introducing Variables
steps:
  - id: word_assign
    text: "Run this:\n\n__program_indented__"
    program: word = 'Hello'
  - id: word_check
    program: word
---
Well done!
`

func lessonDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newStack(t *testing.T, opts Options) *Stack {
	t.Helper()
	stack, err := NewStack(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })
	return stack
}

func TestOpenStore(t *testing.T) {
	store, locker, closer, err := OpenStore(Options{Store: StoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
	assert.Nil(t, locker)
	assert.Nil(t, closer)

	store, _, _, err = OpenStore(Options{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, store, "file is the default")

	_, _, _, err = OpenStore(Options{Store: "carrier-pigeon"})
	assert.ErrorContains(t, err, "unknown store")

	_, _, _, err = OpenStore(Options{Store: StoreRedis})
	assert.ErrorContains(t, err, "needs --redis")
}

func TestOpenStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	store, locker, closer, err := OpenStore(Options{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer closer()
	assert.IsType(t, &redis.Store{}, store)
	assert.IsType(t, &redis.Locker{}, locker)

	_, _, _, err = OpenStore(Options{RedisURL: "not a url"})
	assert.ErrorContains(t, err, "invalid redis url")
}

func TestNewStack_InvalidLogLevel(t *testing.T) {
	_, err := NewStack(Options{Dir: t.TempDir(), LogLevel: "loud"})
	assert.Error(t, err)
}

func TestRunSession_FileStoreResume(t *testing.T) {
	dir := lessonDir(t, map[string]string{"variables.md": lesson})
	ctx := context.Background()

	stack := newStack(t, Options{Dir: dir, LogLevel: "error"})
	out := &bytes.Buffer{}
	require.NoError(t, RunSession(ctx, stack, RunOptions{}, strings.NewReader("word = 'Hello'\n"), out))
	assert.Contains(t, out.String(), "Run this:")

	ids, err := stack.Store.List(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.DirExists(t, filepath.Join(dir, ".tutor", "sessions"))

	// A new process resumes from the file store.
	again := newStack(t, Options{Dir: dir, LogLevel: "error"})
	out.Reset()
	require.NoError(t, RunSession(ctx, again, RunOptions{SessionID: ids[0]}, strings.NewReader("word\n"), out))
	assert.Contains(t, out.String(), "Well done!")
}

func TestRunSession_RequiresPageChoice(t *testing.T) {
	dir := lessonDir(t, map[string]string{
		"a.md": strings.Replace(lesson, "IntroducingVariables", "A", 1),
		"b.md": strings.Replace(lesson, "IntroducingVariables", "B", 1),
	})
	stack := newStack(t, Options{Dir: dir, Store: StoreMemory})

	err := RunSession(context.Background(), stack, RunOptions{}, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorContains(t, err, "choose a page with --page: A, B")

	err = RunSession(context.Background(), stack, RunOptions{PageID: "C"}, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrPageNotFound)
}

func TestSessionCommands(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, id := range []string{"s1", "s2"} {
		require.NoError(t, store.Save(ctx, id, domain.NewSessionState(id, "p")))
	}

	out := &bytes.Buffer{}
	require.NoError(t, ListSessions(ctx, store, out))
	assert.Equal(t, "Active Sessions:\n- s1\n- s2\n", out.String())

	out.Reset()
	require.NoError(t, InspectSession(ctx, store, "s1", out))
	assert.Contains(t, out.String(), `"page_id": "p"`)
	assert.ErrorIs(t, InspectSession(ctx, store, "nope", out), domain.ErrSessionNotFound)

	out.Reset()
	require.NoError(t, RemoveSessions(ctx, store, []string{"s1"}, false, out))
	assert.Equal(t, "Removed session 's1'\n", out.String())

	require.NoError(t, RemoveSessions(ctx, store, nil, true, out))
	out.Reset()
	require.NoError(t, ListSessions(ctx, store, out))
	assert.Equal(t, "No active sessions found.\n", out.String())
}

func TestValidate(t *testing.T) {
	stack := newStack(t, Options{Dir: lessonDir(t, map[string]string{"variables.md": lesson}), Store: StoreMemory})
	out := &bytes.Buffer{}
	require.NoError(t, Validate(context.Background(), stack, out))
	assert.Equal(t, "- IntroducingVariables: Introducing Variables (2 steps)\n1 pages are valid.\n", out.String())

	broken := newStack(t, Options{Dir: lessonDir(t, map[string]string{"bad.md": "---\nid: bad\n---\n"}), Store: StoreMemory})
	err := Validate(context.Background(), broken, out)
	assert.ErrorIs(t, err, domain.ErrAuthoring)
}

func TestHTTPHandler_Metrics(t *testing.T) {
	stack := newStack(t, Options{Dir: lessonDir(t, map[string]string{"variables.md": lesson}), Store: StoreMemory})

	_, err := stack.Engine.StartSession(context.Background(), "IntroducingVariables")
	require.NoError(t, err)
	view, err := stack.Engine.StartSession(context.Background(), "IntroducingVariables")
	require.NoError(t, err)
	_, err = stack.Engine.Submit(context.Background(), view.State.SessionID, "word = 'Hello'")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	NewHTTPHandler(stack).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tutor_step_advances_total")
}

func TestServe_StopsOnCancel(t *testing.T) {
	stack := newStack(t, Options{Dir: lessonDir(t, map[string]string{"variables.md": lesson}), Store: StoreMemory})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Serve(ctx, stack, "127.0.0.1:0"))
}

func TestServeMCP_UnknownTransport(t *testing.T) {
	stack := newStack(t, Options{Dir: lessonDir(t, map[string]string{"variables.md": lesson}), Store: StoreMemory})
	assert.ErrorContains(t, ServeMCP(context.Background(), stack, "carrier-pigeon", 0), "unknown transport")
}

func TestGraph(t *testing.T) {
	stack := newStack(t, Options{Dir: lessonDir(t, map[string]string{"variables.md": lesson}), Store: StoreMemory})
	ctx := context.Background()

	out := &bytes.Buffer{}
	require.NoError(t, Graph(ctx, stack, "", "", out))
	assert.Contains(t, out.String(), "word_assign --> word_check")

	view, err := stack.Engine.StartSession(ctx, "IntroducingVariables")
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, Graph(ctx, stack, "", view.State.SessionID, out))
	assert.Contains(t, out.String(), "class word_assign current;")
}

func TestOpenStore_SessionKey(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	ctx := context.Background()
	opts := Options{Store: StoreMemory, SessionKey: key}

	store, _, _, err := OpenStore(opts)
	require.NoError(t, err)
	state := domain.NewSessionState("s", "p")
	state.Replay = []string{"x = 1"}
	require.NoError(t, store.Save(ctx, "s", state))
	loaded, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"x = 1"}, loaded.Replay)

	_, _, _, err = OpenStore(Options{Store: StoreMemory, SessionKey: "c2hvcnQ="})
	assert.ErrorContains(t, err, EnvSessionKey)
}
