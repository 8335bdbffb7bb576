package llm

import (
	"context"
	"fmt"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/googleapi"
)

// VertexGemini is the alternative provider for deployments that run on
// Google Cloud instead of OpenRouter.
type VertexGemini struct {
	client    *vertexgenai.Client
	model     *vertexgenai.GenerativeModel
	modelName string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	// Gemini takes the system instruction separately. The instruction
	// is fixed for the process, so it is set once here; Complete must
	// never write to the shared model, requests run concurrently.
	m := c.GenerativeModel(modelName)
	m.SystemInstruction = &vertexgenai.Content{
		Parts: []vertexgenai.Part{vertexgenai.Text(systemPrompt)},
	}
	return &VertexGemini{client: c, model: m, modelName: modelName}, nil
}

// flattenConversation folds the non-system turns into a single text
// part. System content is dropped: the model already carries it as its
// instruction.
func flattenConversation(messages []Message) string {
	var convo strings.Builder
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		fmt.Fprintf(&convo, "%s: %s\n", m.Role, m.Content)
	}
	return convo.String()
}

func (v *VertexGemini) Complete(ctx context.Context, messages []Message) (string, string, error) {
	resp, err := v.model.GenerateContent(ctx, vertexgenai.Text(flattenConversation(messages)))
	if err != nil {
		if gerr, ok := err.(*googleapi.Error); ok {
			return "", "", &APIError{Status: gerr.Code, Message: gerr.Message}
		}
		return "", "", err
	}

	var out strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				out.WriteString(string(t))
			}
		}
	}
	if out.Len() == 0 {
		return "", "", &APIError{Status: 200, Message: "empty completion"}
	}
	return out.String(), v.modelName, nil
}

func (v *VertexGemini) Healthy(ctx context.Context) error {
	// No cheap probe exists; treat an instantiated client as healthy.
	return nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }
