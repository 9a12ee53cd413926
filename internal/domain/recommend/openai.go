package recommend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultModel     = openai.GPT3Dot5Turbo
	maxAnswerTokens  = 50
	classifyDeadline = 15 * time.Second
)

// OpenAIClassifier asks a chat completion model to pick a specialty.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

// NewOpenAIClassifier builds a classifier for apiKey. An empty baseURL uses
// the public endpoint.
func NewOpenAIClassifier(apiKey, model, baseURL string) *OpenAIClassifier {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: classifyDeadline}
	if model == "" {
		model = defaultModel
	}
	return &OpenAIClassifier{client: openai.NewClientWithConfig(cfg), model: model}
}

func prompt(symptoms string) string {
	return "Based on the following symptoms, recommend the most appropriate medical specialty:\n" +
		"Symptoms: " + symptoms + "\n\n" +
		"Choose from: " + strings.Join(Specialties, ", ") + "\n\n" +
		"Respond with only the specialty name."
}

func (c *OpenAIClassifier) Classify(ctx context.Context, symptoms string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: maxAnswerTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt(symptoms)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if !allowed(answer) {
		return "", fmt.Errorf("%w: %q", ErrUnrecognised, answer)
	}
	return answer, nil
}
