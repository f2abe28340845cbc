package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/nagaralert/alerthub/internal/models"
)

var ErrNoCompletion = errors.New("no response from OpenAI")

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIImagePart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You classify community disruption reports and return only valid JSON objects."

// OpenAI classifies drafts with a chat completion model. Duplicate detection is
// not attempted and always reports false.
type OpenAI struct {
	http  *resty.Client
	url   string
	model string
}

var _ Analyzer = (*OpenAI)(nil)

func NewOpenAI(apiKey, url, model string) *OpenAI {
	return &OpenAI{
		http: resty.New().
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json"),
		url:   url,
		model: model,
	}
}

func (o *OpenAI) AnalyzeText(ctx context.Context, title, description string) (*Result, error) {
	prompt := fmt.Sprintf(`Classify this local disruption report.

Title: %s
Description: %s

Return a JSON object with:
- category: one of [%s]
- severity: one of [low, medium, high, critical]
- confidence: a float between 0.0 and 1.0
- recommendations: 1-3 short suggestions to make the report more useful

Return ONLY valid JSON.`, title, description, categoryList())

	return o.complete(ctx, prompt)
}

func (o *OpenAI) AnalyzeImage(ctx context.Context, imageURL string) (*Result, error) {
	parts := []openAIImagePart{
		{Type: "text", Text: fmt.Sprintf(
			"Classify the disruption shown in this photo. Return a JSON object with category (one of [%s]), severity (low, medium, high, critical), confidence (0.0-1.0) and recommendations (1-3 strings). Return ONLY valid JSON.",
			categoryList())},
		{Type: "image_url", ImageURL: &struct {
			URL string `json:"url"`
		}{URL: imageURL}},
	}
	return o.complete(ctx, parts)
}

func (o *OpenAI) CheckDuplicate(ctx context.Context, _ Candidate, _ []models.Alert) (bool, error) {
	return false, ctx.Err()
}

func (o *OpenAI) complete(ctx context.Context, userContent any) (*Result, error) {
	var out openAIResponse
	resp, err := o.http.R().
		SetContext(ctx).
		SetBody(openAIRequest{
			Model: o.model,
			Messages: []openAIMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userContent},
			},
			Temperature: 0.2,
			MaxTokens:   400,
		}).
		SetResult(&out).
		Post(o.url)
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode(), resp.String())
	}
	if len(out.Choices) == 0 {
		return nil, ErrNoCompletion
	}

	var result Result
	if err := json.Unmarshal([]byte(cleanJSONContent(out.Choices[0].Message.Content)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}
	return normalize(&result), nil
}

func categoryList() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// cleanJSONContent strips the markdown fences models like to wrap JSON in.
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
