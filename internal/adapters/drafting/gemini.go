package drafting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-1.5-flash"

// GeminiDrafter drafts notices with the Gemini API.
type GeminiDrafter struct {
	client *genai.Client
	model  *genai.GenerativeModel
	studio string
}

// NewGeminiDrafter opens a Gemini client.
// PRE: apiKey is non-empty
// POST: Caller closes the drafter on shutdown
func NewGeminiDrafter(ctx context.Context, apiKey, modelName, studio string) (*GeminiDrafter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(200)
	slog.Info("gemini_drafter_ready", "model", modelName)
	return &GeminiDrafter{client: client, model: model, studio: studio}, nil
}

// Prompt builds the instruction sent to the model.
func Prompt(studio string, req Request) string {
	if studio == "" {
		studio = "the studio"
	}
	return fmt.Sprintf(`You are the friendly, polite front-desk manager of %s.
Write a short, warm and positive notice (at most 50 words) to students.
Tell them that for the %s class %s, %s will be covering for %s.
Briefly apologise for the change and warmly recommend the new instructor.
Do not include a subject line.`,
		studio, req.ClassName, req.ClassTime, req.NewInstructor, req.OldInstructor)
}

// Draft asks the model for a notice.
func (d *GeminiDrafter) Draft(ctx context.Context, req Request) (string, error) {
	resp, err := d.model.GenerateContent(ctx, genai.Text(Prompt(d.studio, req)))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyDraft
	}
	return text, nil
}

// Close releases the client.
func (d *GeminiDrafter) Close() error {
	return d.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
