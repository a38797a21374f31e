package app

import (
	"errors"
	"strings"
)

const (
	learnPrefix   = "/learn "
	unlearnPrefix = "/unlearn "
)

var ErrEmptyCommand = errors.New("command payload is empty")

// Command is the closed set of things a question-shaped input can be. The
// pipeline classifies once and branches once.
type Command interface {
	isCommand()
}

type NormalQuestion struct {
	Text string
}

type LearnCommand struct {
	Fact string
}

type UnlearnCommand struct {
	SearchTerm string
}

func (NormalQuestion) isCommand() {}
func (LearnCommand) isCommand()   {}
func (UnlearnCommand) isCommand() {}

// ParseCommand classifies the raw question text. Leading whitespace is
// ignored, but the prefixes themselves are literal and case-sensitive,
// trailing space included: "/learning x" is a normal question, and "/learn "
// followed by nothing but whitespace is an empty command, not a question.
func ParseCommand(text string) (Command, error) {
	text = strings.TrimLeft(text, " \t\r\n")
	switch {
	case strings.HasPrefix(text, learnPrefix):
		fact := strings.TrimSpace(strings.TrimPrefix(text, learnPrefix))
		if fact == "" {
			return nil, ErrEmptyCommand
		}
		return LearnCommand{Fact: fact}, nil
	case strings.HasPrefix(text, unlearnPrefix):
		term := strings.TrimSpace(strings.TrimPrefix(text, unlearnPrefix))
		if term == "" {
			return nil, ErrEmptyCommand
		}
		return UnlearnCommand{SearchTerm: term}, nil
	default:
		return NormalQuestion{Text: text}, nil
	}
}
