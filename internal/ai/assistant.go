package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/reqctx"
	"google.golang.org/genai"
)

// ItemAssistant answers buyer questions about a listing with Gemini.
type ItemAssistant struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

func NewItemAssistant(ctx context.Context, apiKey, model string, log zerolog.Logger) (*ItemAssistant, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &ItemAssistant{client: client, model: model, log: log}, nil
}

func (a *ItemAssistant) Answer(ctx context.Context, facts ItemFacts, question string) (string, error) {
	start := time.Now()
	log := a.requestLog(ctx)

	parts := []*genai.Part{
		genai.NewPartFromText(assistantInstruction),
		genai.NewPartFromText(BuildItemPrompt(facts)),
		genai.NewPartFromText(buildQuestion(question)),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	temp := float32(0.5)
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	res, err := a.client.Models.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		log.Warn().Err(err).Msg("gemini generate failed")
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	answer, err := CleanAnswer(res.Text())
	if err != nil {
		log.Warn().Err(err).Msg("gemini returned no text")
		return "", err
	}
	log.Debug().Dur("took", time.Since(start)).Int("len", len(answer)).Msg("gemini answered")
	return answer, nil
}

// requestLog tags the assistant logger with the caller's request and user.
func (a *ItemAssistant) requestLog(ctx context.Context) zerolog.Logger {
	return a.log.With().
		Str("rid", reqctx.RequestID(ctx)).
		Uint64("user_id", reqctx.UserID(ctx)).
		Str("model", a.model).
		Logger()
}
