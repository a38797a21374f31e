package app

import (
	"math/rand"
	"strings"
)

const maxFollowUps = 3

var genericFollowUps = []string{
	"What are the responsibilities of the Student President?",
	"What is the penalty for missing a report deadline?",
	"How many events must be conducted per semester?",
	"Who approves the budget for an event?",
	"What documents are required after conducting an event?",
	"How are council members selected?",
	"What happens if an SOP rule is violated?",
}

// keywordFollowUps are prepended when their trigger appears in the lowercased
// question, in this fixed order.
var keywordFollowUps = []struct {
	trigger    string
	suggestion string
}{
	{"president", "What happens if the Student President is absent from an event?"},
	{"event", "What is the minimum attendance required for an event?"},
	{"penalty", "Who decides whether a penalty applies?"},
}

// SuggestFollowUps returns up to three suggested questions: keyword-triggered
// entries first, filled out from the shuffled generic pool. It never fails;
// no keyword match degrades to fully generic suggestions.
func SuggestFollowUps(question string, rng *rand.Rand) []string {
	lowered := strings.ToLower(question)

	suggestions := make([]string, 0, maxFollowUps)
	for _, kf := range keywordFollowUps {
		if len(suggestions) == maxFollowUps {
			break
		}
		if strings.Contains(lowered, kf.trigger) {
			suggestions = append(suggestions, kf.suggestion)
		}
	}

	pool := make([]string, len(genericFollowUps))
	copy(pool, genericFollowUps)
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	for _, generic := range pool {
		if len(suggestions) == maxFollowUps {
			break
		}
		suggestions = append(suggestions, generic)
	}
	return suggestions
}
