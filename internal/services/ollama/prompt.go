package ollama

import (
	_ "embed"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

//go:embed default_prompt.txt
var defaultPromptTemplate string

// TranscriptPlaceholder marks where the transcript is inserted into a prompt
// template.
const TranscriptPlaceholder = "{transcript}"

// DefaultPromptTemplate returns the built-in study material prompt.
func DefaultPromptTemplate() string {
	return defaultPromptTemplate
}

// LoadPromptTemplate reads a prompt template from disk, falling back to the
// built-in template when path is empty. The template must contain the
// transcript placeholder.
func LoadPromptTemplate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return defaultPromptTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load prompt template: %w", err)
	}
	template := string(data)
	if !strings.Contains(template, TranscriptPlaceholder) {
		return "", fmt.Errorf("load prompt template: %s missing %s placeholder", path, TranscriptPlaceholder)
	}
	return template, nil
}

// RenderPrompt substitutes the transcript into a template.
func RenderPrompt(template, transcript string) string {
	return strings.ReplaceAll(template, TranscriptPlaceholder, transcript)
}

// GenerateStudy renders the template with the transcript and asks the model
// for study material. Blank transcripts are rejected before any request is
// made so a silent recording never burns a generation call.
func (c *Client) GenerateStudy(ctx context.Context, template, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", errors.New("generate study: transcript is empty")
	}
	if strings.TrimSpace(template) == "" {
		template = defaultPromptTemplate
	}
	return c.Generate(ctx, RenderPrompt(template, transcript))
}
