package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

var (
	ErrMessageRequired = errors.New("Invalid request: message is required.")
	ErrUnavailable     = errors.New("The StockHouse Advisor is temporarily unavailable, please try again shortly.")
	ErrNotConfigured   = errors.New("The StockHouse Advisor is not configured.")
)

const maxMessageLen = 4000

const preamble = `You are StockHouse Advisor, an expert, factual, and safety-conscious real estate investment assistant for the StockHouse web app. Answer clearly and concisely. When appropriate, ask one clarifying question before giving a recommendation. Prioritize actionable steps, cite assumptions, and avoid making claims about real-time market prices. If the user requests unrelated content, briefly explain the scope and redirect to real estate topics.`

const instructions = `Instructions: Keep answers concise (preferably 1-3 sentences). If recommending action (e.g., invest, review docs), include one clear next step. Don't give any raw legal, tax, or medical advice; recommend consulting a professional.`

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}

// Service answers advisor chat messages. Dataset is a pre-rendered summary line, may be empty.
type Service struct {
	Generator Generator
	Dataset   string
}

// Reply builds the prompt and asks the model. Caller context, when given, replaces the
// dataset summary.
func (s *Service) Reply(ctx context.Context, message string, callerContext map[string]interface{}) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" || len(message) > maxMessageLen {
		return "", ErrMessageRequired
	}
	if s.Generator == nil {
		return "", ErrNotConfigured
	}
	reply, err := s.Generator.Generate(ctx, s.Prompt(message, callerContext))
	if err != nil {
		log.Error().Err(err).Msg("advisor generation failed")
		return "", ErrUnavailable
	}
	return reply, nil
}

// Prompt assembles preamble, context block, instructions and the user message.
func (s *Service) Prompt(message string, callerContext map[string]interface{}) string {
	var b strings.Builder
	b.WriteString(preamble)
	if len(callerContext) > 0 {
		if ctxJSON, err := json.Marshal(callerContext); err == nil {
			b.WriteString("\n\nContext: ")
			b.Write(ctxJSON)
			b.WriteString("\n\n")
		}
	} else if s.Dataset != "" {
		b.WriteString("\n\nDataset: ")
		b.WriteString(s.Dataset)
		b.WriteString("\n\n")
	}
	b.WriteString("\n")
	b.WriteString(instructions)
	b.WriteString("\n\nUser: ")
	b.WriteString(message)
	return b.String()
}
