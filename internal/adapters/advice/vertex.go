package advice

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/ask-michael/internal/domain"
)

type VertexOptions struct {
	ProjectID string
	Location  string
	ModelName string
}

// VertexClient generates advice with Gemini on Vertex AI instead of calling
// a remote advice backend.
type VertexClient struct {
	client    *genai.Client
	modelName string
}

func NewVertexClient(ctx context.Context, opts VertexOptions) (*VertexClient, error) {
	if opts.ProjectID == "" || opts.Location == "" {
		return nil, errors.New("vertex: project and location must be set")
	}
	if opts.ModelName == "" {
		opts.ModelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  opts.ProjectID,
		Location: opts.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{
		client:    client,
		modelName: opts.ModelName,
	}, nil
}

// buildContents maps the conversation to genai contents. Assistant turns
// become model turns.
func buildContents(msgs []domain.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		if m.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

// Ask implements domain.AdviceClient using Vertex AI.
func (v *VertexClient) Ask(ctx context.Context, msgs []domain.Message) (*domain.AdviceReply, error) {
	temp := float32(0.4)
	topP := float32(0.9)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   int32(8192),
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, buildContents(msgs), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: vertex generate content: %v", domain.ErrBackend, err)
	}

	text := res.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: vertex returned empty text", domain.ErrBackend)
	}

	return successReply(text)
}
