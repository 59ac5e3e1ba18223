package provider

import (
	"context"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// TextDrafter runs one-shot, non-streaming text generations against a
// registry model. Tools that need model output (suggestion drafting)
// consume it behind their own interface.
type TextDrafter struct {
	registry *Registry
	modelRef string
}

// NewTextDrafter creates a drafter bound to a "provider/model" ref; an
// empty ref uses the registry's first available model.
func NewTextDrafter(registry *Registry, modelRef string) *TextDrafter {
	return &TextDrafter{registry: registry, modelRef: modelRef}
}

// Draft generates a completion for the prompt and returns the full
// text.
func (d *TextDrafter) Draft(ctx context.Context, system, prompt string) (string, error) {
	prov, model, err := d.registry.ResolveRef(d.modelRef)
	if err != nil {
		return "", err
	}

	stream, err := prov.CreateCompletion(ctx, &CompletionRequest{
		Model: model.ID,
		Messages: []*schema.Message{
			{Role: schema.System, Content: system},
			{Role: schema.User, Content: prompt},
		},
		MaxTokens: model.MaxOutputTokens,
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var out strings.Builder
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		out.WriteString(msg.Content)
	}
	return out.String(), nil
}
