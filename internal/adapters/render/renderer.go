// Package render turns collected source files into a single packed
// artifact in one of the supported output styles.
package render

import (
	"fmt"
	"strings"

	"github.com/codetide/repopack/internal/application/ports"
	"github.com/codetide/repopack/internal/domain/errors"
	"github.com/codetide/repopack/internal/domain/metrics"
	"github.com/codetide/repopack/internal/domain/pack"
)

// DefaultHeader is prepended to artifacts when no custom header is given.
const DefaultHeader = "This file is a merged representation of the repository, combined into a single document."

// Renderer implements ports.Renderer for all supported styles.
type Renderer struct{}

// NewRenderer creates a new Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces the packed artifact text for the given files.
func (r *Renderer) Render(files []metrics.FileRecord, opts ports.RenderOptions) (string, error) {
	style := opts.Style
	if style == "" {
		style = pack.StyleMarkdown
	}
	if !style.Known() {
		return "", errors.NewError(errors.CodeValidation,
			fmt.Sprintf("unknown output style %q", style), errors.ErrUnknownOutputStyle)
	}

	header := opts.Header
	if header == "" {
		header = DefaultHeader
	}

	switch style {
	case pack.StyleMarkdown:
		return renderMarkdown(files, header, opts.LineNumbers), nil
	case pack.StyleXML:
		return renderXML(files, header, opts.LineNumbers), nil
	default:
		return renderPlain(files, header, opts.LineNumbers), nil
	}
}

func renderMarkdown(files []metrics.FileRecord, header string, lineNumbers bool) string {
	var b strings.Builder

	b.WriteString("# Repository Pack\n\n")
	b.WriteString(header)
	b.WriteString("\n\n## File Summary\n\n")
	for _, f := range files {
		fmt.Fprintf(&b, "- %s\n", f.Path)
	}
	b.WriteString("\n## Files\n")

	for _, f := range files {
		fmt.Fprintf(&b, "\n### %s\n\n", f.Path)
		fence := codeFence(f.Content)
		b.WriteString(fence)
		b.WriteString("\n")
		writeContent(&b, f.Content, lineNumbers)
		b.WriteString(fence)
		b.WriteString("\n")
	}

	return b.String()
}

func renderXML(files []metrics.FileRecord, header string, lineNumbers bool) string {
	var b strings.Builder

	b.WriteString("<repository_pack>\n")
	fmt.Fprintf(&b, "<summary>\n%s\n</summary>\n", escapeXML(header))

	b.WriteString("<file_summary>\n")
	for _, f := range files {
		fmt.Fprintf(&b, "<path>%s</path>\n", escapeXML(f.Path))
	}
	b.WriteString("</file_summary>\n")

	b.WriteString("<files>\n")
	for _, f := range files {
		fmt.Fprintf(&b, "<file path=%q>\n", f.Path)
		writeContentFunc(&b, f.Content, lineNumbers, escapeXML)
		b.WriteString("</file>\n")
	}
	b.WriteString("</files>\n")
	b.WriteString("</repository_pack>\n")

	return b.String()
}

func renderPlain(files []metrics.FileRecord, header string, lineNumbers bool) string {
	const separator = "================================================================"

	var b strings.Builder

	b.WriteString(separator)
	b.WriteString("\nRepository Pack\n")
	b.WriteString(separator)
	b.WriteString("\n")
	b.WriteString(header)
	b.WriteString("\n\n")

	b.WriteString(separator)
	b.WriteString("\nFile Summary\n")
	b.WriteString(separator)
	b.WriteString("\n")
	for _, f := range files {
		b.WriteString(f.Path)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, f := range files {
		b.WriteString(separator)
		fmt.Fprintf(&b, "\nFile: %s\n", f.Path)
		b.WriteString(separator)
		b.WriteString("\n")
		writeContent(&b, f.Content, lineNumbers)
		b.WriteString("\n")
	}

	return b.String()
}

// writeContent writes file content, optionally prefixing each line with
// its 1-based number.
func writeContent(b *strings.Builder, content string, lineNumbers bool) {
	writeContentFunc(b, content, lineNumbers, func(s string) string { return s })
}

func writeContentFunc(b *strings.Builder, content string, lineNumbers bool, escape func(string) string) {
	if !lineNumbers {
		b.WriteString(escape(content))
		if !strings.HasSuffix(content, "\n") {
			b.WriteString("\n")
		}
		return
	}

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	width := len(fmt.Sprintf("%d", len(lines)))
	for i, line := range lines {
		fmt.Fprintf(b, "%*d: %s\n", width, i+1, escape(line))
	}
}

// codeFence returns a backtick fence long enough not to collide with
// fences inside the content itself.
func codeFence(content string) string {
	longest := 0
	run := 0
	for _, r := range content {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}

	n := 3
	if longest >= n {
		n = longest + 1
	}
	return strings.Repeat("`", n)
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

func escapeXML(s string) string {
	return xmlReplacer.Replace(s)
}
