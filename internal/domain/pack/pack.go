// Package pack provides domain types for packed repository artifacts.
package pack

import (
	"time"

	"github.com/codetide/repopack/internal/domain/metrics"
)

// Style selects the textual rendering of the packed artifact.
type Style string

const (
	StyleMarkdown Style = "markdown"
	StyleXML      Style = "xml"
	StylePlain    Style = "plain"
)

// Known reports whether s is a supported output style.
func (s Style) Known() bool {
	switch s {
	case StyleMarkdown, StyleXML, StylePlain:
		return true
	}
	return false
}

// Request describes one pack run over already-collected sources.
type Request struct {
	RootDir     string
	OutputPath  string
	Style       Style
	LineNumbers bool
	Encoding    metrics.Encoding
}

// Result is the outcome of a pack run: the rendered artifact plus its
// metrics report. Both are produced together; a run that cannot compute
// metrics fails as a whole.
type Result struct {
	Files         []metrics.FileRecord
	Output        string
	Report        *metrics.Report
	CorrelationID string
	Duration      time.Duration
}
