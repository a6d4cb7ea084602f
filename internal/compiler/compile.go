package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/tutor/internal/dto"
	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/evaluator"
	"github.com/aretw0/tutor/pkg/pattern"
	"github.com/aretw0/tutor/pkg/sandbox"
)

// Compile validates an authored page and turns it into a domain.Page with
// every descriptor parsed and every canonical program compiled. All problems
// are reported together, wrapped in domain.ErrAuthoring.
func Compile(meta *dto.PageMetadata) (*domain.Page, error) {
	c := &compilation{}
	page := &domain.Page{
		ID:        meta.ID,
		Title:     meta.Title,
		FinalText: strings.TrimSpace(meta.FinalText),
		Steps:     make([]domain.Step, 0, len(meta.Steps)),
	}
	if page.ID == "" {
		c.errorf("page: missing id")
	}
	if len(meta.Steps) == 0 {
		c.errorf("page %q: no steps", page.ID)
	}

	seen := make(map[string]bool, len(meta.Steps))
	for i, sm := range meta.Steps {
		where := fmt.Sprintf("step %d", i)
		if sm.ID != "" {
			where = fmt.Sprintf("step %q", sm.ID)
		}
		switch {
		case sm.ID == "":
			c.errorf("%s: missing id", where)
		case seen[sm.ID]:
			c.errorf("%s: duplicate id", where)
		}
		seen[sm.ID] = true
		page.Steps = append(page.Steps, c.step(where, sm))
	}

	if err := c.err(); err != nil {
		return nil, fmt.Errorf("%w: page %q: %w", domain.ErrAuthoring, page.ID, err)
	}
	return page, nil
}

type compilation struct {
	errs []error
}

func (c *compilation) errorf(format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf(format, args...))
}

func (c *compilation) err() error {
	return errors.Join(c.errs...)
}

func (c *compilation) step(where string, sm dto.StepMetadata) domain.Step {
	step := domain.Step{
		ID:              sm.ID,
		Text:            strings.TrimSpace(sm.Text),
		Strategy:        domain.Strategy(sm.Strategy),
		Mode:            domain.Mode(sm.Mode),
		Program:         strings.TrimSpace(sm.Program),
		MismatchMessage: sm.MismatchMessage,
		AllowFault:      sm.AllowFault,
		Hints:           c.hints(where, sm.Hints),
	}

	step.Shape = c.shape(where, sm.Shape, sm.Statement)

	if sm.Predicate != nil {
		p := domain.Predicate{Name: sm.Predicate.Name, Script: strings.TrimSpace(sm.Predicate.Script)}
		switch {
		case p.Name == "" && p.Script == "":
			c.errorf("%s: predicate needs a name or a script", where)
		case p.Name != "" && p.Script != "":
			c.errorf("%s: predicate has both a name and a script", where)
		case p.Script != "":
			if err := sandbox.ParseExpr(p.Script); err != nil {
				c.errorf("%s: predicate script: %v", where, err)
			}
		}
		step.Predicate = &p
	}

	if step.Strategy == "" {
		step.Strategy = inferStrategy(&step)
	}

	switch step.Mode {
	case "", domain.ModeShell, domain.ModeEditor:
	default:
		c.errorf("%s: unknown mode %q", where, step.Mode)
	}

	if step.Program != "" {
		tree, err := sandbox.Parse(step.Program)
		if err != nil {
			c.errorf("%s: program does not parse: %v", where, err)
		} else {
			step.Canonical = pattern.Exact(tree)
		}
	}

	switch step.Strategy {
	case domain.StrategyVerbatim:
		if step.Program == "" {
			c.errorf("%s: verbatim step needs a program", where)
		}
	case domain.StrategyStructural:
		if step.Shape == nil && len(sm.Shape) == 0 && len(sm.Statement) == 0 {
			c.errorf("%s: structural step needs a shape", where)
		}
	case domain.StrategyPredicate:
		if step.Predicate == nil {
			c.errorf("%s: predicate step needs a predicate", where)
		}
	default:
		c.errorf("%s: unknown strategy %q", where, step.Strategy)
	}

	for i, hm := range sm.Heuristics {
		step.Heuristics = append(step.Heuristics, c.heuristic(fmt.Sprintf("%s: heuristic %d", where, i), hm))
	}

	for i, rm := range sm.Requires {
		if err := sandbox.ParseExpr(rm.Condition); err != nil {
			c.errorf("%s: requirement %d: %v", where, i, err)
		}
		if rm.Message == "" {
			c.errorf("%s: requirement %d: missing message", where, i)
		}
		step.Requirements = append(step.Requirements, domain.Requirement{Condition: rm.Condition, Message: rm.Message})
	}

	return step
}

func inferStrategy(step *domain.Step) domain.Strategy {
	switch {
	case step.Shape != nil:
		return domain.StrategyStructural
	case step.Predicate != nil:
		return domain.StrategyPredicate
	}
	return domain.StrategyVerbatim
}

// shape compiles either a full descriptor or the single-statement shorthand.
func (c *compilation) shape(where string, shape, statement map[string]any) *pattern.Descriptor {
	switch {
	case len(shape) > 0 && len(statement) > 0:
		c.errorf("%s: shape and statement are mutually exclusive", where)
		return nil
	case len(shape) > 0:
		d, err := pattern.Parse(shape)
		if err != nil {
			c.errorf("%s: shape: %v", where, err)
			return nil
		}
		return d
	case len(statement) > 0:
		d, err := pattern.Parse(statement)
		if err != nil {
			c.errorf("%s: statement: %v", where, err)
			return nil
		}
		return pattern.Statement(d)
	}
	return nil
}

func (c *compilation) heuristic(where string, hm dto.HeuristicMetadata) domain.Heuristic {
	h := domain.Heuristic{
		Kind:    domain.HeuristicKind(hm.Kind),
		Pattern: hm.Pattern,
		Target:  hm.Target,
		Name:    hm.Name,
		Message: hm.Message,
	}
	switch h.Kind {
	case domain.HeuristicInputMatches:
		if _, err := evaluator.CompileInputPattern(h.Pattern); err != nil || h.Pattern == "" {
			c.errorf("%s: invalid pattern %q", where, h.Pattern)
		}
	case domain.HeuristicAssignTarget:
		if h.Target == "" {
			c.errorf("%s: missing target", where)
		}
	case domain.HeuristicShape:
		h.Shape = c.shape(where, hm.Shape, hm.Statement)
		if h.Shape == nil && len(hm.Shape) == 0 && len(hm.Statement) == 0 {
			c.errorf("%s: missing shape", where)
		}
	case domain.HeuristicMissingQuotes:
	case domain.HeuristicRegistered:
		if h.Name == "" {
			c.errorf("%s: missing name", where)
		}
		return h
	default:
		c.errorf("%s: unknown kind %q", where, h.Kind)
	}
	if h.Message == "" {
		c.errorf("%s: missing message", where)
	}
	return h
}

// hints accepts a list or a block of text with one hint per line.
func (c *compilation) hints(where string, raw any) []string {
	var out []string
	switch v := raw.(type) {
	case nil:
	case string:
		for _, line := range strings.Split(v, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				c.errorf("%s: hint %d is not a string", where, i)
				continue
			}
			out = append(out, strings.TrimSpace(s))
		}
	case []string:
		for _, s := range v {
			out = append(out, strings.TrimSpace(s))
		}
	default:
		c.errorf("%s: hints must be a list or text", where)
	}
	return out
}
