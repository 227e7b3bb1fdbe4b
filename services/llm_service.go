package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultOllamaHost is used when OLLAMA_HOST is unset.
const DefaultOllamaHost = "http://localhost:11434"

// ErrGeminiUnavailable is returned for Gemini models when no API key is configured.
var ErrGeminiUnavailable = errors.New("Gemini backend not configured, set GEMINI_API_KEY")

// ModelBackend answers prompts for the models it serves.
type ModelBackend interface {
	// Ping checks the backend is reachable before a session is created.
	Ping(ctx context.Context) error
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// OllamaService talks to a local ollama server. It also embeds text for the
// semantic index.
type OllamaService struct {
	client     *ollama.Client
	embedModel string
}

func NewOllamaService(host string, httpClient *http.Client, embedModel string) (*OllamaService, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}
	return &OllamaService{
		client:     ollama.NewClient(u, httpClient),
		embedModel: embedModel,
	}, nil
}

func (o *OllamaService) Ping(ctx context.Context) error {
	if _, err := o.client.List(ctx); err != nil {
		return fmt.Errorf("Failed to connect to Ollama: %w", err)
	}
	log.Debug().Msg("SERVICE: ollama is running and accessible")
	return nil
}

func (o *OllamaService) Generate(ctx context.Context, model, prompt string) (string, error) {
	stream := false
	req := &ollama.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &stream,
	}

	var text strings.Builder
	log.Info().Str("model", model).Msg("SERVICE: sending request to ollama")
	err := o.client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		text.WriteString(gr.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Error querying Ollama: %w", err)
	}
	return text.String(), nil
}

func (o *OllamaService) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embeddings(ctx, &ollama.EmbeddingRequest{
		Model:  o.embedModel,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama embedding api: %w", err)
	}
	out := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// GeminiService answers Gemini models through the Gemini API.
type GeminiService struct {
	client *genai.Client
}

// NewGeminiService returns nil without an API key; Ping on a nil service fails.
func NewGeminiService(ctx context.Context, apiKey string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiService{client: client}, nil
}

func (g *GeminiService) Ping(context.Context) error {
	if g == nil || g.client == nil {
		return ErrGeminiUnavailable
	}
	return nil
}

func (g *GeminiService) Generate(ctx context.Context, model, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", ErrGeminiUnavailable
	}
	log.Info().Str("model", model).Msg("SERVICE: sending request to gemini")
	result, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: GetSystemPrompt(),
	})
	if err != nil {
		return "", fmt.Errorf("gemini api call failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "I'm sorry, I couldn't generate a response.", nil
	}
	return text, nil
}
