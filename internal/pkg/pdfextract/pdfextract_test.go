package pdfextract

import (
	"strings"
	"testing"
)

func TestExtractTextRejectsOversizedInput(t *testing.T) {
	if _, err := ExtractText(strings.NewReader(strings.Repeat("x", 100)), 50); err == nil {
		t.Fatal("input beyond the byte cap must be rejected")
	}
}

func TestExtractTextEmptyInput(t *testing.T) {
	got, err := ExtractText(strings.NewReader(""), 0)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
