package categorize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/angelmondragon/homequote-backend/pkg/config"
)

const defaultModel = "gemini-2.0-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIClassifier asks a Gemini model to pick one of Labels.
type GenAIClassifier struct {
	models contentGenerator
	model  string
}

// NewGenAIClassifier builds a classifier against the Gemini API.
func NewGenAIClassifier(ctx context.Context, cfg config.GenAIConfig) (*GenAIClassifier, error) {
	if !cfg.Enabled() {
		return nil, errors.New("genai api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return newGenAIClassifier(client.Models, cfg.Model), nil
}

func newGenAIClassifier(models contentGenerator, model string) *GenAIClassifier {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &GenAIClassifier{models: models, model: model}
}

// Classify returns the model's label for the terms.
func (c *GenAIClassifier) Classify(ctx context.Context, terms string) (Label, error) {
	enum := make([]string, 0, len(Labels))
	for _, label := range Labels {
		enum = append(enum, string(label))
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt(terms)), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "text/x.enum",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeString,
			Enum: enum,
		},
	})
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}
	if resp == nil {
		return "", errors.New("genai returned no response")
	}

	label, ok := ParseLabel(resp.Text())
	if !ok {
		return "", fmt.Errorf("genai returned unknown label %q", resp.Text())
	}
	return label, nil
}

func prompt(terms string) string {
	var b strings.Builder
	b.WriteString("Classify the following quotation terms from a home improvement supplier into exactly one label.\n")
	b.WriteString("Labels: ")
	for i, label := range Labels {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(label))
	}
	b.WriteString(".\nAnswer with the label only.\n\nTerms:\n")
	b.WriteString(terms)
	return b.String()
}
