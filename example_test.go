package tutor_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/tutor"
	"github.com/aretw0/tutor/pkg/adapters/memory"
)

// ExampleNew_memory demonstrates how to use the Engine with an in-memory page.
// This is useful for testing, embedded scenarios, or when you don't want to rely on the file system.
func ExampleNew_memory() {
	loader := memory.NewLoader(map[string]string{
		"Greeting": `
id: Greeting
final_text: Done!
steps:
  - id: assign
    text: Run ` + "`__program__`" + `.
    program: word = 'Hello'
  - id: echo
    program: word
`,
	})

	// No file path needed ("") because we are providing a loader.
	engine, err := tutor.New("", tutor.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	view, err := engine.StartSession(ctx, "Greeting")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(view.Prompt)

	id := view.State.SessionID
	fb, err := engine.Submit(ctx, id, "word='Hello'")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(fb.Verdict.Kind)

	fb, err = engine.Submit(ctx, id, "word")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(fb.Value)
	fmt.Println(fb.FinalText)
	// Output:
	// Run `word = 'Hello'`.
	// pass
	// "Hello"
	// Done!
}
