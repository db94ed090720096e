package coverletter

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

const maxDescriptionRunes = 8000

const llmPrompt = `You are helping a job seeker write a cover letter.

Write a concise, professional cover letter (three short paragraphs, plain text,
no markdown, no placeholders) for the position below. Sign it with the
candidate's name. Do not invent employers, degrees or numbers that are not in
the candidate summary.

Candidate name: %s
Role: %s
Company: %s

Candidate summary:
%s

Job description:
%s
`

// LLMGenerator asks a language model for the letter.
type LLMGenerator struct {
	model    llms.Model
	fallback Generator
}

// NewLLMGenerator wraps model; fallback is used when the model fails.
func NewLLMGenerator(model llms.Model, fallback Generator) *LLMGenerator {
	if fallback == nil {
		fallback = NewTemplateGenerator()
	}
	return &LLMGenerator{model: model, fallback: fallback}
}

// NewGemini builds an LLMGenerator on Google's Gemini API.
func NewGemini(ctx context.Context, apiKey, model string) (*LLMGenerator, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("googleai.New: %w", err)
	}
	return NewLLMGenerator(llm, nil), nil
}

func (g *LLMGenerator) Generate(ctx context.Context, req Request) (string, error) {
	desc := req.JobDescription
	if r := []rune(desc); len(r) > maxDescriptionRunes {
		desc = string(r[:maxDescriptionRunes])
	}
	prompt := fmt.Sprintf(llmPrompt,
		req.YourName, req.Role, req.Company,
		orNone(req.ResumeSummary), orNone(desc))

	resp, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt)
	if err == nil && strings.TrimSpace(resp) != "" {
		return resp, nil
	}
	if err == nil {
		err = fmt.Errorf("empty completion")
	}
	log.Warn().Err(err).Str("company", req.Company).Msg("llm cover letter failed, using template")
	return g.fallback.Generate(ctx, req)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none provided)"
	}
	return s
}
