package report

import (
	"fmt"
	"strings"
	"testing"
)

func TestBatchByLineCount(t *testing.T) {
	lines := make([]string, 95)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}

	batches := Batch(lines, 0, 0)
	if len(batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(batches))
	}
	if got := strings.Count(batches[0], "\n") + 1; got != DefaultMaxLines {
		t.Fatalf("first batch has %d lines", got)
	}
	if !strings.HasSuffix(batches[2], "line 94") {
		t.Fatalf("last batch = %q", batches[2])
	}
}

func TestBatchByCharacters(t *testing.T) {
	line := strings.Repeat("é", 99)
	batches := Batch([]string{line, line, line}, 250, 40)

	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}
	for _, b := range batches {
		if n := len([]rune(b)); n > 250 {
			t.Fatalf("batch of %d characters", n)
		}
	}
}

func TestBatchSkipsBlankLinesAndKeepsLongLine(t *testing.T) {
	long := strings.Repeat("x", 50)
	batches := Batch([]string{"", "  ", long, "tail"}, 20, 40)

	if len(batches) != 2 || batches[0] != long || batches[1] != "tail" {
		t.Fatalf("batches = %q", batches)
	}
}

func TestReportBatches(t *testing.T) {
	r := Notice("a", "", "b")
	if got := r.Batches(100, 1); len(got) != 2 {
		t.Fatalf("batches = %q", got)
	}
}
