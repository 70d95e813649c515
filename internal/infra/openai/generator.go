package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"mindvault/internal/domain"
	"mindvault/internal/metrics"
)

const systemPrompt = `You are an expert quiz creator. Return only valid JSON with the exact format requested: {"question": "...", "options": ["A option", "B option", "C option", "D option"], "answer": "A"}`

// Config carries the chat completion settings. An empty APIKey disables the
// upstream call and every question is the fallback.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Generator derives one multiple-choice question per concept from an
// OpenAI-compatible chat completion endpoint.
type Generator struct {
	client  *openai.Client
	model   string
	temp    float32
	tokens  int
	timeout time.Duration
}

func NewGenerator(cfg Config) *Generator {
	g := &Generator{
		model:   cfg.Model,
		temp:    cfg.Temperature,
		tokens:  cfg.MaxTokens,
		timeout: cfg.Timeout,
	}
	if g.model == "" {
		g.model = openai.GPT4oMini
	}
	if g.tokens <= 0 {
		g.tokens = 500
	}
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		g.client = openai.NewClientWithConfig(clientCfg)
	}
	return g
}

// Generate never fails: any upstream, parse or validation problem yields the
// fallback question tagged SourceFallback.
func (g *Generator) Generate(ctx context.Context, conceptName, sourceText string) domain.GeneratedQuestion {
	q, err := g.ask(ctx, conceptName, sourceText)
	if err != nil {
		log.Printf("generate question for %q: %v", conceptName, err)
		metrics.QuestionGenerated(string(domain.SourceFallback))
		return domain.GeneratedQuestion{
			Question: domain.FallbackQuestion(conceptName),
			Source:   domain.SourceFallback,
		}
	}
	metrics.QuestionGenerated(string(domain.SourceGenerated))
	return domain.GeneratedQuestion{Question: q, Source: domain.SourceGenerated}
}

func (g *Generator) ask(ctx context.Context, conceptName, sourceText string) (domain.Question, error) {
	if g.client == nil {
		return domain.Question{}, errors.New("no api key configured")
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(conceptName, sourceText)},
		},
		Temperature: g.temp,
		MaxTokens:   g.tokens,
	})
	if err != nil {
		return domain.Question{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Question{}, errors.New("no choices in response")
	}
	return parseQuestion(resp.Choices[0].Message.Content)
}

func buildPrompt(conceptName, sourceText string) string {
	return "You are a helpful tutor. Create exactly ONE multiple-choice question (with 4 options A-D) based on the concept name and text. " +
		"Return JSON with keys: question, options (array), answer (one of A/B/C/D).\n\n" +
		"Concept: " + conceptName + "\n" +
		"Text: " + sourceText + "\n\n" +
		"Make the question challenging but fair, with clear options and one correct answer."
}

// parseQuestion reads the JSON object between the first '{' and the last '}'
// so prose or code fences around it are ignored.
func parseQuestion(raw string) (domain.Question, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return domain.Question{}, errors.New("no json object in response")
	}
	var q domain.Question
	if err := json.Unmarshal([]byte(raw[start:end+1]), &q); err != nil {
		return domain.Question{}, fmt.Errorf("decode question: %w", err)
	}
	if err := q.Validate(); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}
