package app

import (
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Command
	}{
		{"learn", "/learn the sky is blue", LearnCommand{Fact: "the sky is blue"}},
		{"unlearn", "/unlearn sky", UnlearnCommand{SearchTerm: "sky"}},
		{"learn trims payload", "/learn   spaced fact  ", LearnCommand{Fact: "spaced fact"}},
		{"leading whitespace ignored", "  /learn indented fact", LearnCommand{Fact: "indented fact"}},
		{"prefix needs trailing space", "/learning something", NormalQuestion{Text: "/learning something"}},
		{"no space means normal", "/learn", NormalQuestion{Text: "/learn"}},
		{"case sensitive", "/Learn the sky", NormalQuestion{Text: "/Learn the sky"}},
		{"mid-sentence slash is normal", "how do I /learn things", NormalQuestion{Text: "how do I /learn things"}},
		{"plain question", "what is the deadline", NormalQuestion{Text: "what is the deadline"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.input)
			if err != nil {
				t.Fatalf("ParseCommand(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseCommand(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCommandEmptyPayload(t *testing.T) {
	for _, input := range []string{"/learn ", "/learn    ", "/unlearn ", "/unlearn   "} {
		if _, err := ParseCommand(input); !errors.Is(err, ErrEmptyCommand) {
			t.Fatalf("ParseCommand(%q): got %v, want ErrEmptyCommand", input, err)
		}
	}
}
