// Package llm wraps the OpenAI chat-completions API behind the two calls the
// agent needs: deciding the next browser action and summarizing a finished
// run.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const safeDOMLimit = 30000

type OpenAIClient struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

func NewOpenAIClient(model string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
		// One decision every ~2s is plenty for a browser loop and keeps
		// burst retries from tripping the account limit.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 2),
	}, nil
}

func (c *OpenAIClient) DecideAction(ctx context.Context, input DecisionInput) (*DecisionOutput, error) {
	var sb strings.Builder
	sb.WriteString("TASK: " + input.Task + "\n")
	sb.WriteString("URL: " + input.CurrentURL + "\n")

	if input.History != "" {
		sb.WriteString("HISTORY:\n" + input.History + "\n")
	}

	dom := input.DOMTree
	if len(dom) > safeDOMLimit {
		dom = dom[:safeDOMLimit] + "\n...[TRUNCATED]"
	}
	sb.WriteString("\nDOM:\n" + dom)

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: sb.String()},
	}
	if input.ScreenshotBase64 != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: "data:image/jpeg;base64," + input.ScreenshotBase64,
			},
		})
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: visionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
		MaxTokens:   300,
	}

	resp, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices")
	}

	content := strings.Trim(resp.Choices[0].Message.Content, "`")

	var out DecisionOutput
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("decision parse error: %w | content: %s", err, content)
	}

	NormalizeAction(&out.Action)
	return &out, nil
}

// complete sends the request with rate limiting and retries 429s with
// exponential backoff.
func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var resp openai.ChatCompletionResponse
	var err error

	for attempt := 0; attempt < 5; attempt++ {
		if err = c.limiter.Wait(ctx); err != nil {
			return resp, err
		}

		resp, err = c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}

		if strings.Contains(err.Error(), "429") {
			backoff := time.Duration(3*(1<<attempt)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return resp, ctx.Err()
			}
			continue
		}
		return resp, fmt.Errorf("openai error: %w", err)
	}
	return resp, fmt.Errorf("openai error after retries: %w", err)
}

// NormalizeAction maps loosely-typed model output onto the strict action
// vocabulary. Unknown types become a scroll, which is always safe.
func NormalizeAction(a *Action) {
	switch strings.ToLower(strings.TrimSpace(string(a.Type))) {
	case "click":
		a.Type = ActionClick
	case "type", "fill", "input":
		a.Type = ActionTypeInput
	case "scroll", "scroll_down":
		a.Type = ActionScroll
	case "wait_login", "wait_for_login", "login":
		a.Type = ActionWaitLogin
	case "finish", "done":
		a.Type = ActionFinish
	default:
		a.Type = ActionScroll
	}
}
