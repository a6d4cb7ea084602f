/*
Package tutor is a step verification engine for interactive programming lessons.

A lesson page is an ordered list of steps. For each step the learner submits a
fragment of source code; the engine runs it in the learner's session
namespace, inspects its syntax tree and resulting state, and answers with a
verdict: pass (advance to the next step), a targeted failure message, or a
generic "try again". Repeated failures on a step reveal escalating hints.

# Concept

Learner code is written in Starlark, a small Python dialect with a
deterministic, embeddable interpreter. Each session owns one namespace that
persists from step to step, so a variable bound on one step can be used on the
next. Steps are checked verbatim against a canonical program, structurally
against a partial tree pattern, or with a predicate over the attempt.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/tutor"
	)

	func main() {
		// Reads lesson pages from ./lessons
		eng, err := tutor.New("./lessons")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		view, err := eng.StartSession(ctx, "IntroducingVariables")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(view.Prompt)

		fb, err := eng.Submit(ctx, view.State.SessionID, "word = 'Hello'")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(fb.Verdict.Kind, fb.Verdict.Message, fb.Hint)
	}
*/
package tutor
