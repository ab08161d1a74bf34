// Package metrics provides domain types for artifact size and token usage metrics.
package metrics

// Encoding names a specific tokenization scheme. It is opaque to the rest of
// the system and immutable once chosen for a run.
type Encoding string

// Known encodings. Any tiktoken encoding name is accepted; these are the ones
// surfaced through configuration.
const (
	EncodingO200kBase  Encoding = "o200k_base"
	EncodingCL100kBase Encoding = "cl100k_base"
)

// DefaultEncoding is used when configuration does not name one.
const DefaultEncoding = EncodingO200kBase

// ContentFragment is a contiguous slice of text submitted for token counting.
// Label is optional and used only for diagnostics. Fragments are never
// mutated after creation.
type ContentFragment struct {
	Content  string
	Label    string
	Encoding Encoding
}

// FragmentTokenCount is the result of counting one fragment. Count is always
// non-negative; a fragment the tokenizer cannot process is counted as zero
// rather than failing the enclosing computation.
type FragmentTokenCount struct {
	Count int
	Label string
}

// FileRecord is one already-collected source file, treated as opaque text.
type FileRecord struct {
	Path    string
	Content string
}

// Report aggregates size and token metrics for one packed artifact.
type Report struct {
	TotalFiles      int
	TotalCharacters int
	TotalTokens     int
	FileCharCounts  map[string]int
	FileTokenCounts map[string]int
}

// NewReport returns a Report with initialized per-file maps.
func NewReport() *Report {
	return &Report{
		FileCharCounts:  make(map[string]int),
		FileTokenCounts: make(map[string]int),
	}
}
