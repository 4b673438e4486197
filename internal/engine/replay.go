package engine

import (
	"context"
	"regexp"

	"github.com/GriffinCanCode/snippetlab/internal/capture"
)

// Isolate executes standalone script text with only the console channel
// available to it. Implementations must not share mutable bindings with the
// evaluator.
type Isolate interface {
	Run(ctx context.Context, script string, console *capture.Channel) error
}

var exportQualifier = regexp.MustCompile(`(?m)^(\s*)export\s+`)

// StripExports removes leading per-line export qualifiers so top-level
// declarations become plain statements.
func StripExports(src string) string {
	return exportQualifier.ReplaceAllString(src, "$1")
}

// replay re-executes src as a standalone script and returns the lines it
// logged.
func replay(ctx context.Context, iso Isolate, ch *capture.Channel, src string) ([]string, error) {
	script := StripExports(src)
	rec, err := capture.Capture(ch, func() (struct{}, error) {
		return struct{}{}, iso.Run(ctx, script, ch)
	})
	if err != nil {
		return nil, err
	}
	return rec.Logs, nil
}
