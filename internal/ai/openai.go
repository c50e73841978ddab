package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/luzzdev/luzzia/internal/models"
	"github.com/luzzdev/luzzia/internal/storage"
)

// Base URLs for the OpenAI-compatible endpoints of the supported providers.
var providerBaseURLs = map[string]string{
	"groq":       "https://api.groq.com/openai/v1",
	"openrouter": "https://openrouter.ai/api/v1",
	"gemini":     "https://generativelanguage.googleapis.com/v1beta/openai",
}

const defaultModel = "gpt-4o-mini"

// OpenAIGenerator talks to whichever provider row is active in the admin
// panel through its OpenAI-compatible chat-completions endpoint. The
// credential is resolved from storage on every call so key changes take
// effect without a restart.
type OpenAIGenerator struct {
	providers   storage.AdminStorage
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewOpenAIGenerator(providers storage.AdminStorage, maxTokens int, temperature float64, logger *zap.Logger) *OpenAIGenerator {
	return &OpenAIGenerator{
		providers:   providers,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

func (g *OpenAIGenerator) Ready(ctx context.Context) error {
	_, err := g.activeProvider(ctx)
	return err
}

func (g *OpenAIGenerator) activeProvider(ctx context.Context) (*models.APIProvider, error) {
	p, err := g.providers.GetActiveProvider(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoProvider
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active provider: %w", err)
	}
	return p, nil
}

func (g *OpenAIGenerator) newClient(p *models.APIProvider) *openai.Client {
	cfg := openai.DefaultConfig(p.APIKey)
	if base, ok := providerBaseURLs[p.Provider]; ok {
		cfg.BaseURL = base
	}
	return openai.NewClientWithConfig(cfg)
}

func (g *OpenAIGenerator) model(p *models.APIProvider) string {
	if p.Model != "" {
		return p.Model
	}
	return defaultModel
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	p, err := g.activeProvider(ctx)
	if err != nil {
		return "", err
	}
	client := g.newClient(p)

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Text,
	})

	completionReq := openai.ChatCompletionRequest{
		Model:       g.model(p),
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: float32(g.temperature),
	}

	if onDelta == nil {
		resp, err := client.CreateChatCompletion(ctx, completionReq)
		if err != nil {
			return "", fmt.Errorf("chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat completion returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	}

	completionReq.Stream = true
	stream, err := client.CreateChatCompletionStream(ctx, completionReq)
	if err != nil {
		return "", fmt.Errorf("chat completion stream failed: %w", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("chat completion stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		onDelta(delta)
	}
	return full.String(), nil
}

type classifyResponse struct {
	Title string `json:"title"`
	Type  string `json:"type"`
}

func (g *OpenAIGenerator) Classify(ctx context.Context, userText, reply string) (*Classification, error) {
	p, err := g.activeProvider(ctx)
	if err != nil {
		return nil, err
	}
	client := g.newClient(p)

	prompt := fmt.Sprintf(`Com base na seguinte troca de mensagens, gere um título curto e descritivo em português com 3 a 5 palavras para a conversa. Além disso, classifique o conteúdo como um destes tipos: 'note', 'video', 'document' ou 'chat'. Responda apenas com um único objeto JSON válido no formato: {"title": "Seu Título Aqui", "type": "chat"}. Mensagem do usuário: %q`, userText)
	if reply != "" {
		prompt += fmt.Sprintf(" Resposta do assistente: %q", reply)
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model(p),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classification returned no choices")
	}

	var parsed classifyResponse
	raw := StripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		g.logger.Error("Failed to parse classification response",
			zap.Error(err),
			zap.String("response", raw))
		return nil, fmt.Errorf("failed to parse classification response: %w", err)
	}

	result := &Classification{
		Title:    strings.Trim(strings.TrimSpace(parsed.Title), `"`),
		Category: models.Category(parsed.Type),
	}
	if !models.ValidCategory(result.Category) {
		result.Category = models.CategoryChat
	}
	return result, nil
}

var codeFenceRe = regexp.MustCompile("(?s)^```(?:[a-zA-Z]*)?\\s*\\n?(.*?)\\n?\\s*```$")

// StripCodeFence removes a surrounding markdown code fence, which some
// models wrap around JSON responses despite instructions not to.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}
