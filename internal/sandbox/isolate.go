package sandbox

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/snippetlab/internal/capture"
)

// Isolate runs standalone scripts in a fresh runtime that exposes a console
// bound to the given channel and, when enabled, the inert timers.
type Isolate struct {
	config   Config
	language Language
}

// NewIsolate creates an isolate for scripts written in language.
func NewIsolate(config Config, language Language) *Isolate {
	return &Isolate{config: config, language: language}
}

// Run executes script to completion.
func (i *Isolate) Run(ctx context.Context, script string, console *capture.Channel) error {
	code := script
	if i.language != JavaScript {
		var err error
		code, err = transformScript(Source{Name: "replay", Language: i.language, Code: script})
		if err != nil {
			return err
		}
	}

	rt, err := newRuntime(capture.WithChannel(ctx, console), i.config)
	if err != nil {
		return err
	}
	defer rt.Close()
	if err := rt.setupTimers(); err != nil {
		return err
	}

	wrapped, err := rt.vm.RunScript("replay", "(function (console) {\"use strict\";\n"+code+"\n})")
	if err != nil {
		return err
	}
	fn, ok := goja.AssertFunction(wrapped)
	if !ok {
		return fmt.Errorf("sandbox: replay did not compile to a function")
	}
	_, err = fn(goja.Undefined(), rt.newConsole())
	return err
}
