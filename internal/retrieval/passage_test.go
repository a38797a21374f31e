package retrieval

import (
	"reflect"
	"testing"
)

func TestSourceNamePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]string
		want     string
	}{
		{"source wins", map[string]string{"source": "Event SOP", "fileName": "events.pdf"}, "Event SOP"},
		{"fileName next", map[string]string{"fileName": "events.pdf", "pdf": "x.pdf"}, "events.pdf"},
		{"pdf next", map[string]string{"pdf": "x.pdf", "file": "y"}, "x.pdf"},
		{"file last", map[string]string{"file": "y"}, "y"},
		{"blank fields skipped", map[string]string{"source": "  ", "fileName": "events.pdf"}, "events.pdf"},
		{"nothing set", map[string]string{}, UnknownSource},
		{"nil metadata", nil, UnknownSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SourceName(Passage{Metadata: tt.metadata}); got != tt.want {
				t.Fatalf("SourceName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollectSourcesDedupAndSkip(t *testing.T) {
	passages := []Passage{
		{Metadata: map[string]string{"source": "Finance SOP"}},
		{Metadata: map[string]string{"fileName": "events.pdf"}},
		{Metadata: map[string]string{"source": "Finance SOP"}},
		{Metadata: nil},
		{Metadata: map[string]string{"source": "Council SOP"}},
	}
	got := CollectSources(passages)
	want := []string{"Finance SOP", "events.pdf", "Council SOP"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CollectSources = %v, want %v", got, want)
	}
}

func TestJoinContextKeepsEveryPassage(t *testing.T) {
	passages := []Passage{
		{Text: "first", Metadata: map[string]string{"source": "A"}},
		{Text: "second", Metadata: map[string]string{"source": "A"}},
		{Text: "third"},
	}
	want := "[A]\nfirst\n\n[A]\nsecond\n\n[" + UnknownSource + "]\nthird"
	if got := JoinContext(passages); got != want {
		t.Fatalf("JoinContext = %q, want %q", got, want)
	}
}
