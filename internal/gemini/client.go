// Package gemini provides definitions and lecture notes from the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jwulff/livenotes/internal/apperr"
	"google.golang.org/genai"
)

const definePrompt = `Give a short dictionary definition of the English word %q.
Reply with the definition only, one or two sentences, no preamble.
If it is not a real word, reply with nothing.`

const notesPrompt = `You are taking lecture notes. Using the transcript below, write
concise study notes in plain text. Start with a one-line summary of the
topic, then cover the main points in the order they came up. Separate
sections with a blank line. Do not use markdown.

Transcript:
---
%s
---`

var errEmptyResponse = errors.New("empty response from Gemini")

// generator is the subset of genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements both lookup.Definer and teardown.Summarizer.
type Client struct {
	models generator
	model  string
}

// New connects to the Gemini API with apiKey.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key not set")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &Client{models: c.Models, model: model}, nil
}

// Define returns a definition of word. An empty reply is apperr.ErrNotFound.
func (c *Client) Define(ctx context.Context, word string) (string, error) {
	text, err := c.generate(ctx, DefinePrompt(word))
	if errors.Is(err, errEmptyResponse) {
		return "", fmt.Errorf("define %q: %w", word, apperr.ErrNotFound)
	}
	return text, err
}

// Notes returns study notes for transcript. An empty transcript yields no notes.
func (c *Client) Notes(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", nil
	}
	text, err := c.generate(ctx, NotesPrompt(transcript))
	if errors.Is(err, errEmptyResponse) {
		return "", nil
	}
	return text, err
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	result, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(extractText(result))
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

func extractText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func DefinePrompt(word string) string {
	return fmt.Sprintf(definePrompt, word)
}

func NotesPrompt(transcript string) string {
	return fmt.Sprintf(notesPrompt, transcript)
}
