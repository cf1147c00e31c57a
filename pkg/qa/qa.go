// Package qa answers free-form questions that the rule-based handlers
// cannot, using a language model over the table text.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrEmptyAnswer is returned when the model produces no text
var ErrEmptyAnswer = errors.New("empty answer")

// Fallback answers question from the given context chunks
type Fallback interface {
	Answer(ctx context.Context, chunks []string, question string) (string, error)
}

const systemPrompt = `You answer questions about a table of quarterly figures per person.
Use only the table rows provided. Reply with a single short sentence containing the
figure asked for. If the table does not contain the answer, reply exactly "unknown".`

// GeminiFallback asks a Gemini model
type GeminiFallback struct {
	client *genai.Client
	model  string
}

// NewGeminiFallback creates a Gemini client for model
func NewGeminiFallback(ctx context.Context, apiKey, model string) (*GeminiFallback, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiFallback{client: client, model: model}, nil
}

// Answer sends each chunk as its own part followed by the question
func (g *GeminiFallback) Answer(ctx context.Context, chunks []string, question string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0)),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, BuildContents(chunks, question), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return Clean(result.Text())
}

// BuildContents lays out the table chunks and the question as one user turn
func BuildContents(chunks []string, question string) []*genai.Content {
	parts := make([]*genai.Part, 0, len(chunks)+1)
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			parts = append(parts, &genai.Part{Text: c})
		}
	}
	parts = append(parts, &genai.Part{Text: "Question: " + strings.TrimSpace(question)})

	return []*genai.Content{{Role: "user", Parts: parts}}
}

// Clean trims model output and maps "unknown" replies to ErrEmptyAnswer
func Clean(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(strings.Trim(text, "."), "unknown") {
		return "", ErrEmptyAnswer
	}
	return text, nil
}

// Func adapts a plain function to Fallback
type Func func(ctx context.Context, chunks []string, question string) (string, error)

// Answer calls f
func (f Func) Answer(ctx context.Context, chunks []string, question string) (string, error) {
	return f(ctx, chunks, question)
}
