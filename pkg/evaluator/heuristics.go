package evaluator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/pattern"
	"github.com/aretw0/tutor/pkg/registry"
	"github.com/aretw0/tutor/pkg/sandbox"
)

// runHeuristics returns the message of the first heuristic that fires.
func (e *Evaluator) runHeuristics(ctx context.Context, step *domain.Step, a *registry.Attempt) (string, bool, error) {
	for i, h := range step.Heuristics {
		fired, err := e.fires(ctx, h, a)
		if err != nil {
			return "", false, authoring(step, fmt.Sprintf("heuristic %d (%s): %v", i, h.Kind, err))
		}
		if fired != "" {
			e.logger.Debug("Heuristic fired", "step", step.ID, "index", i, "kind", h.Kind)
			return fired, true, nil
		}
	}
	return "", false, nil
}

// fires returns the message of h when it recognizes the attempt, or "".
func (e *Evaluator) fires(ctx context.Context, h domain.Heuristic, a *registry.Attempt) (string, error) {
	var hit bool
	switch h.Kind {
	case domain.HeuristicInputMatches:
		re, err := e.regexps.get(h.Pattern)
		if err != nil {
			return "", err
		}
		hit = re.MatchString(StripSpace(a.Input))

	case domain.HeuristicAssignTarget:
		target, ok := AssignTarget(a.Input)
		hit = ok && target != h.Target

	case domain.HeuristicShape:
		if h.Shape == nil {
			return "", fmt.Errorf("missing shape")
		}
		hit = a.Tree != nil && pattern.Matches(a.Tree, h.Shape)

	case domain.HeuristicMissingQuotes:
		hit = missingQuotes(a)

	case domain.HeuristicRegistered:
		fn, err := e.registry.Heuristic(h.Name)
		if err != nil {
			return "", err
		}
		msg, ok := fn(ctx, a)
		if !ok {
			return "", nil
		}
		// An authored message overrides the one the heuristic supplies.
		if h.Message != "" {
			return h.Message, nil
		}
		return msg, nil

	default:
		return "", fmt.Errorf("unknown heuristic kind %q", h.Kind)
	}

	if !hit {
		return "", nil
	}
	return h.Message, nil
}

// StripSpace removes every whitespace character from s.
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// AssignTarget returns the trimmed text left of the first assignment '='
// in src. Comparison operators are skipped.
func AssignTarget(src string) (string, bool) {
	for i := 0; i < len(src); i++ {
		if src[i] != '=' {
			continue
		}
		if i+1 < len(src) && src[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && strings.ContainsRune("=!<>", rune(src[i-1])) {
			continue
		}
		return strings.TrimSpace(src[:i]), true
	}
	return "", false
}

// missingQuotes fires for a single assignment whose value is a bare name
// that is not bound, e.g. `name = Ann`.
func missingQuotes(a *registry.Attempt) bool {
	if a.Tree == nil {
		return false
	}
	body := a.Tree.Children("body")
	if len(body) != 1 || body[0].Kind != pattern.KindAssign {
		return false
	}
	value := body[0].Child("value")
	if value == nil || value.Kind != pattern.KindName {
		return false
	}
	if a.Fault != nil && a.Fault.Kind == sandbox.KindNameError {
		return true
	}
	id, _ := value.Field("id")
	name, _ := id.(string)
	_, bound := a.Namespace.Get(name)
	return !bound
}

// regexpCache compiles input_matches patterns once. Patterns are anchored at
// both ends.
type regexpCache struct {
	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

func newRegexpCache() *regexpCache {
	return &regexpCache{cache: make(map[string]*regexp.Regexp)}
}

func (c *regexpCache) get(p string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.cache[p]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := CompileInputPattern(p)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[p] = re
	c.mu.Unlock()
	return re, nil
}

// CompileInputPattern compiles an input_matches pattern as a full match.
func CompileInputPattern(p string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + p + `)$`)
}
