package quiz

import (
	"context"
	"errors"
	"strings"
)

// TextGenerator sends a single prompt to a generative text service.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator turns transcripts into raw quiz text.
type Generator struct {
	Client TextGenerator
}

// NewGenerator wraps a text generation client.
func NewGenerator(client TextGenerator) *Generator {
	return &Generator{Client: client}
}

// Generate sends the quiz prompt for transcript and returns the raw response.
func (g *Generator) Generate(ctx context.Context, transcript string) (string, error) {
	if g == nil || g.Client == nil {
		return "", errors.New("quiz generator: client not configured")
	}
	if strings.TrimSpace(transcript) == "" {
		return "", errors.New("quiz generator: transcript is empty")
	}
	return g.Client.Complete(ctx, BuildPrompt(transcript))
}
