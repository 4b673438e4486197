/*
Package sandbox runs snippet source inside goja JavaScript runtimes.

Modules are compiled with esbuild to CommonJS and evaluated in a runtime of
their own. Only "react" may be imported; it resolves to a small built-in
shim whose hooks return their initial state, so components render once and
statically. JSX elements are rendered to golang.org/x/net/html trees.

Every runtime binds console to the capture channel carried by the context it
was created with. Cancelling that context interrupts running script.

	mod, err := sandbox.Load(ctx, sandbox.DefaultConfig(), src)
	if err != nil {
		return err
	}
	defer mod.Close()

	exports := mod.Exports()

An Isolate re-runs a script with nothing but the console in scope. It backs
the top-level output replay of script snippets.
*/
package sandbox
