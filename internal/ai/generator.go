package ai

import "context"

// Generator binds a client to one model endpoint so callers do not carry the
// chat configuration around.
type Generator struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

func NewGenerator(client *OpenAICompatibleClient, cfg ChatConfig) *Generator {
	return &Generator{client: client, cfg: cfg}
}

func (g *Generator) Generate(ctx context.Context, messages []ChatMessage) (string, error) {
	return g.client.Complete(ctx, g.cfg, messages)
}

func (g *Generator) GenerateStream(ctx context.Context, messages []ChatMessage, onChunk func(string) error) (string, error) {
	return g.client.StreamComplete(ctx, g.cfg, messages, onChunk)
}
