/*
Package engine decides what a snippet outputs.

# Overview

Two evaluators share one result model:

  - ScriptEvaluator: plain scripts. Probes demo() then run(), captures what
    the call logs, then replays the top-level statements in an Isolate.
  - ComponentEvaluator: renderable modules. Picks Preview over default and
    resolves props from getPreviewProps(), previewProps, the component's
    own previewProps, or an empty mapping, in that order.

Both return a Result (Rendered, Diagnostic or Empty) and never an error.

# Exports

Module shapes are discovered at runtime. Exports is a plain mapping with
capability accessors (Callable, Value, Renderable) so every resolution rule
is an ordered predicate check that can be tested without a JavaScript VM.

# Cancellation

Evaluators check ctx after each suspension point. A cancelled evaluation
returns a Diagnostic that callers tracking the current selection discard.
*/
package engine
