/*
Package runner implements the interactive loop that takes a learner through a
page, plus the input sanitizer shared by every transport.

The Runner presents the step awaiting input, reads an attempt through an
IOHandler, submits it to the engine and shows the feedback, until the page is
complete. Lines starting with ":" are commands (:reset, :restart, :quit,
:help). Steps in editor mode read several lines, ended by an empty line.

# Usage

	r := runner.NewRunner(engine,
		runner.WithPageID("IntroducingVariables"),
		runner.WithRenderer(tui.NewRenderer()),
	)
	if _, err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
