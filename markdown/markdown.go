// Package markdown renders post content to HTML with goldmark, as a string
// or as a templ component.
package markdown

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// The converter configuration never changes and goldmark.Markdown is safe
// for concurrent use.
var (
	converter     goldmark.Markdown
	converterOnce sync.Once
)

func getConverter() goldmark.Markdown {
	converterOnce.Do(func() {
		converter = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			// Raw HTML in content is omitted; links with dangerous
			// schemes are dropped by the default renderer.
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return converter
}

// Render converts markdown src to HTML.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := getConverter().Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Markdown returns a templ.Component that renders src as HTML.
func Markdown(src string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return getConverter().Convert([]byte(src), w)
	})
}

// Preview returns a standalone HTML document with title as heading and src
// rendered below it, for checking a post before it is published.
func Preview(title, src string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		esc := templ.EscapeString(title)
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`+
			esc+`</title></head><body><article><h1>`+esc+`</h1>`); err != nil {
			return err
		}
		if err := Markdown(src).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</article></body></html>`)
		return err
	})
}

// PlainText strips markdown formatting from src and collapses whitespace,
// for feed descriptions and search snippets.
func PlainText(src string) string {
	if src == "" {
		return ""
	}
	source := []byte(src)
	doc := getConverter().Parser().Parse(text.NewReader(source))

	var b strings.Builder
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(n.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Image:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
