package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Source returns the exact text of a snippet as UTF-8.
func (c *Catalog) Source(ctx context.Context, id string) (string, error) {
	s, err := c.Get(id)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("catalog: read %s: %w", id, err)
	}
	if !isText(data) {
		return "", fmt.Errorf("%w: %s", ErrNotText, id)
	}

	text, name, err := decode(data)
	if err != nil {
		return "", fmt.Errorf("catalog: decode %s: %w", id, err)
	}
	if name != "utf-8" {
		c.logger.Debug("Transcoded snippet source",
			zap.String("snippet", id),
			zap.String("charset", name),
		)
	}
	return text, nil
}

// SourceLoader binds Source to one snippet.
func (c *Catalog) SourceLoader(id string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return c.Source(ctx, id)
	}
}

func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// decode converts data to UTF-8, detecting the charset when it is not
// already valid UTF-8.
func decode(data []byte) (string, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	name := "windows-1252"
	if result, err := chardet.NewTextDetector().DetectBest(data); err == nil && result != nil {
		name = strings.ToLower(result.Charset)
	}
	enc, canonical := charset.Lookup(name)
	if enc == nil {
		return "", name, fmt.Errorf("unsupported charset %q", name)
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", canonical, err
	}
	return string(out), canonical, nil
}
