package services

import (
	"context"
	"fmt"

	"github.com/addislearn/quiz-backend/config"
)

// ModelClient is the single seam between the generation engine and a
// generative backend. One implementation per provider; the engine never
// branches on which one it holds.
type ModelClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewModelClient builds the client selected by configuration. Provider
// choice is decided once at startup and injected, never read from ambient
// process state afterwards.
func NewModelClient(ctx context.Context, cfg config.QuizConfig) (ModelClient, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Model)
	case "openai":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model, "")
	case "groq":
		return NewOpenAIClient(cfg.GroqAPIKey, cfg.Model, groqBaseURL)
	default:
		return nil, fmt.Errorf("unknown quiz provider %q", cfg.Provider)
	}
}
