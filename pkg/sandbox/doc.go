/*
Package sandbox executes learner source against a persistent, per-session Namespace.

The teaching language is Starlark. Source is parsed first; a syntax error is
reported as a ParseFault and the namespace is left untouched. Parsed source is
then executed in place, statement effects accumulating in the namespace across
attempts the way an interactive shell accumulates history:

	sb := sandbox.New(sandbox.WithTimeout(time.Second))
	ns := sandbox.NewNamespace()
	sb.Execute(ctx, "word = 'Hello'", ns)
	res := sb.Execute(ctx, "word + ' World'", ns)
	fmt.Println(res.Value) // "Hello World"

Runtime faults are captured in Result.Fault. An attempt that exceeds its
budget is cancelled and the namespace is restored to its state before the call.
*/
package sandbox
