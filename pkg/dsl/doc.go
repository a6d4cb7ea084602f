/*
Package dsl provides a fluent Go API for authoring lesson pages.

Pages built here are the same documents the loaders read from disk, so they
go through the same compilation and authoring checks.

Example usage:

	b := dsl.New()
	b.Page("IntroducingVariables").
		Final("Well done!").
		Step("word_assign").
		Text("Run this:\n\n__program_indented__").
		Program("word = 'Hello'")

	eng, err := tutor.NewFromPages(b.Pages())
*/
package dsl
