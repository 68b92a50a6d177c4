package pages

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed content/*.md
var defaultContent embed.FS

// ErrContentNotFound reports a markdown page with no file and no embedded
// default.
var ErrContentNotFound = errors.New("page content not found")

// MarkdownRenderer turns markdown pages into HTML. Files in dir take
// precedence over the embedded defaults.
type MarkdownRenderer struct {
	md  goldmark.Markdown
	dir string
}

// NewMarkdownRenderer returns a renderer reading overrides from dir, which
// may be empty.
func NewMarkdownRenderer(dir string) *MarkdownRenderer {
	return &MarkdownRenderer{
		md:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		dir: dir,
	}
}

// Source returns the markdown of a page. content is either a path to a .md
// file or the name of an embedded page such as "home".
func (r *MarkdownRenderer) Source(content string) ([]byte, error) {
	name := strings.TrimSpace(content)
	if name == "" {
		return nil, fmt.Errorf("%w: empty content name", ErrContentNotFound)
	}
	file := name
	if filepath.Ext(file) == "" {
		file += ".md"
	}

	candidates := []string{file}
	if r.dir != "" && !filepath.IsAbs(file) {
		candidates = append([]string{filepath.Join(r.dir, file)}, candidates...)
	}
	for _, c := range candidates {
		data, err := os.ReadFile(c)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", c, err)
		}
	}

	data, err := defaultContent.ReadFile("content/" + filepath.Base(file))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrContentNotFound, name)
	}
	return data, nil
}

// Render converts markdown to HTML.
func (r *MarkdownRenderer) Render(source []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	// goldmark drops raw HTML unless WithUnsafe is set.
	return template.HTML(buf.String()), nil
}

// RenderPage loads and renders a markdown page.
func (r *MarkdownRenderer) RenderPage(content string) (template.HTML, error) {
	source, err := r.Source(content)
	if err != nil {
		return "", err
	}
	return r.Render(source)
}
