package sandbox

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const (
	jsxFactory  = "__h"
	jsxFragment = "__Fragment"
)

func loaderFor(lang Language) api.Loader {
	switch lang {
	case TypeScript:
		return api.LoaderTS
	case JSX:
		return api.LoaderJSX
	case TSX:
		return api.LoaderTSX
	default:
		return api.LoaderJS
	}
}

// transformModule compiles an ES module into a CommonJS body that expects
// exports, require and module in scope.
func transformModule(src Source) (string, error) {
	return transform(src, api.FormatCommonJS)
}

// transformScript strips types from a standalone script without changing
// its module format.
func transformScript(src Source) (string, error) {
	return transform(src, api.FormatDefault)
}

func transform(src Source, format api.Format) (string, error) {
	result := api.Transform(src.Code, api.TransformOptions{
		Loader:      loaderFor(src.Language),
		Format:      format,
		Target:      api.ES2017,
		JSX:         api.JSXTransform,
		JSXFactory:  jsxFactory,
		JSXFragment: jsxFragment,
		Sourcefile:  src.Name,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("%w: %s", ErrTransform, formatMessages(result.Errors))
	}
	return string(result.Code), nil
}

func formatMessages(msgs []api.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			parts = append(parts, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "; ")
}
