package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tutor/pkg/registry"
)

func TestRegistry(t *testing.T) {
	r := registry.NewRegistry()
	r.RegisterPredicate("printed_hello", func(_ context.Context, a *registry.Attempt) registry.Decision {
		if a.Stdout == "Hello\n" {
			return registry.Decision{Kind: registry.Accept}
		}
		return registry.Decision{Kind: registry.Reject, Message: "print Hello"}
	})
	r.RegisterHeuristic("shouting", func(_ context.Context, a *registry.Attempt) (string, bool) {
		return "no need to shout", a.Input == "HELLO"
	})

	p, err := r.Predicate("printed_hello")
	require.NoError(t, err)
	assert.Equal(t, registry.Accept, p(context.Background(), &registry.Attempt{Stdout: "Hello\n"}).Kind)
	assert.Equal(t, registry.Reject, p(context.Background(), &registry.Attempt{}).Kind)

	h, err := r.Heuristic("shouting")
	require.NoError(t, err)
	msg, ok := h(context.Background(), &registry.Attempt{Input: "HELLO"})
	assert.True(t, ok)
	assert.Equal(t, "no need to shout", msg)

	_, err = r.Predicate("missing")
	assert.Error(t, err)
	_, err = r.Heuristic("missing")
	assert.Error(t, err)

	preds, heur := r.Names()
	assert.Equal(t, []string{"printed_hello"}, preds)
	assert.Equal(t, []string{"shouting"}, heur)
}
