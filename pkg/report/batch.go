package report

import (
	"strings"
	"unicode/utf8"
)

// Reply size limits used when nothing else is configured.
const (
	DefaultMaxChars = 3500
	DefaultMaxLines = 40
)

// Batches splits the rendered report into messages of at most maxChars
// characters and maxLines lines. Blank lines are dropped. A single line
// longer than maxChars is sent on its own.
func (r *Report) Batches(maxChars, maxLines int) []string {
	return Batch(r.Lines(), maxChars, maxLines)
}

// Batch splits lines into messages.
func Batch(lines []string, maxChars, maxLines int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	var (
		out   []string
		batch []string
		chars int
	)
	flush := func() {
		if len(batch) > 0 {
			out = append(out, strings.Join(batch, "\n"))
		}
		batch = batch[:0]
		chars = 0
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n := utf8.RuneCountInString(line) + 1
		if chars+n > maxChars || len(batch) >= maxLines {
			flush()
		}
		batch = append(batch, line)
		chars += n
	}
	flush()

	return out
}
