package sandbox

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedImport = errors.New("sandbox: unsupported import")
	ErrTransform         = errors.New("sandbox: transform failed")
	ErrRenderDepth       = errors.New("sandbox: render depth exceeded")
	ErrInvalidChild      = errors.New("sandbox: objects are not valid as an element child")
	ErrNoRender          = errors.New("sandbox: class component has no render method")
)

// Config defines sandbox configuration
type Config struct {
	MaxCallStackSize int  // Maximum JS call stack depth
	MaxRenderDepth   int  // Maximum nesting of rendered elements
	EnableConsole    bool // Bind console.log/info/warn/error to the channel
	EnableTimers     bool // Install inert setTimeout/setInterval stubs
}

// DefaultConfig returns the default sandbox configuration.
func DefaultConfig() Config {
	return Config{
		MaxCallStackSize: 1024,
		MaxRenderDepth:   256,
		EnableConsole:    true,
		EnableTimers:     true,
	}
}

// Language is the source dialect of a snippet.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	JSX        Language = "jsx"
	TSX        Language = "tsx"
)

// LanguageOf maps a file extension to its Language.
func LanguageOf(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs":
		return JavaScript, true
	case ".ts", ".mts", ".cts":
		return TypeScript, true
	case ".jsx":
		return JSX, true
	case ".tsx":
		return TSX, true
	}
	return "", false
}

// Source is a snippet ready to be loaded.
type Source struct {
	Name     string // File name used in stack traces
	Language Language
	Code     string
}
