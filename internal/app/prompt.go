package app

import (
	"strings"

	"sopbot/internal/ai"
)

const systemInstruction = `You are the Strict Compliance Officer for the organization's SOP knowledge base.

CRITICAL RULES:
- Answer ONLY based on the SOP context provided below. Do NOT provide general advice.
- If a rule was violated, state the exact rule and the penalty in bold.
- Always identify the specific role responsible (e.g., Student President, Technical Head).
- If the answer is not in the context, respond: "I cannot find a specific rule for this in the SOPs."
- Be professional, authoritative, and concise.
- Format your response with clear structure using bullet points or numbered lists.`

const noHistoryPlaceholder = "No previous conversation."

// BuildPrompt merges history, retrieved context, and the question into the
// generation input. It never truncates: callers bound history length first.
func BuildPrompt(historyText, contextText, question string) []ai.ChatMessage {
	history := strings.TrimSpace(historyText)
	if history == "" {
		history = noHistoryPlaceholder
	}

	var user strings.Builder
	user.WriteString("PREVIOUS CONVERSATION:\n")
	user.WriteString(history)
	user.WriteString("\n\nSOP CONTEXT:\n")
	user.WriteString(contextText)
	user.WriteString("\n\nUSER QUESTION:\n")
	user.WriteString(question)
	user.WriteString("\n\nYOUR VERDICT:")

	return []ai.ChatMessage{
		{Role: "system", Content: systemInstruction},
		{Role: "user", Content: user.String()},
	}
}
