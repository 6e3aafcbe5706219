package judge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	xhttp "Aegis/pkg/http"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Completer sends one prompt to the judgment service and returns its raw
// text. Overload signals should wrap ErrOverload; Classify also recognises
// the common textual forms.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var (
	overloadMarkers = []string{"resource_exhausted", "rate limit", "overloaded", "too many requests"}
	// 429 standing alone, as in "status code: 429," or "(429)". Digits
	// inside request ids, ports or paths do not count.
	overloadStatus = regexp.MustCompile(`(?:^|[\s(\[])429(?:$|[\s,:;)\]])`)
)

// IsOverload reports whether err is a transient back-pressure signal. Typed
// errors decide on their own; the text markers only classify untyped errors
// such as those returned by the chat client.
func IsOverload(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOverload) {
		return true
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	if overloadStatus.MatchString(msg) {
		return true
	}
	for _, m := range overloadMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// ChatCompleter talks to an OpenAI-compatible chat endpoint through eino.
type ChatCompleter struct {
	model model.BaseChatModel
}

// ChatConfig carries the connection settings; the API key is never defaulted.
type ChatConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

func NewChatCompleter(ctx context.Context, cfg ChatConfig) (*ChatCompleter, error) {
	mc := &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		mc.MaxTokens = &maxTokens
	}
	cm, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return &ChatCompleter{model: cm}, nil
}

// NewChatCompleterFromModel wraps an existing eino model.
func NewChatCompleterFromModel(m model.BaseChatModel) *ChatCompleter {
	return &ChatCompleter{model: m}
}

func (c *ChatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		if IsOverload(err) {
			return "", fmt.Errorf("%w: %v", ErrOverload, err)
		}
		return "", err
	}
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}

// HTTPCompleter posts the prompt to a plain JSON judgment endpoint that
// answers {"text": "..."}.
type HTTPCompleter struct {
	url    string
	apiKey string
	model  string
	client *xhttp.Client
}

func NewHTTPCompleter(url, apiKey, modelName string, client *xhttp.Client) *HTTPCompleter {
	if client == nil {
		client = xhttp.NewClient()
	}
	return &HTTPCompleter{url: url, apiKey: apiKey, model: modelName, client: client}
}

type httpJudgeRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

type httpJudgeResponse struct {
	Text string `json:"text"`
}

func (c *HTTPCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	headers := map[string]string{"Content-Type": "application/json"}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}
	var out httpJudgeResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.url,
		Headers: headers,
		Body:    httpJudgeRequest{Model: c.model, Prompt: prompt},
	}, &out)
	if err != nil {
		if IsOverload(err) {
			return "", fmt.Errorf("%w: %v", ErrOverload, err)
		}
		return "", err
	}
	return out.Text, nil
}

var (
	_ Completer = (*ChatCompleter)(nil)
	_ Completer = (*HTTPCompleter)(nil)
)
