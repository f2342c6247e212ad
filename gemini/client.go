package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/fwojciec/vawk"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ vawk.Model = (*Client)(nil)

// ErrEmptyReply is returned when a response carries no text.
var ErrEmptyReply = errors.New("gemini: response has no text content")

// Client implements [vawk.Model] for the Google Gemini API.
type Client struct {
	client    *genai.Client
	model     string
	maxTokens int
	baseURL   string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID. Empty keeps the default.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens sets the reply token limit. Non-positive keeps the default.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithBaseURL overrides the API endpoint. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c.client = gc
	return c, nil
}

// Label returns "gemini:<model>".
func (c *Client) Label() string { return "gemini:" + c.model }

// Call sends messages to the Gemini API and returns the reply text.
func (c *Client) Call(ctx context.Context, messages []vawk.Message) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, ConvertMessages(messages), c.buildConfig(messages))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func (c *Client) buildConfig(messages []vawk.Message) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		MaxOutputTokens:   int32(c.maxTokens),
		SystemInstruction: SystemInstruction(messages),
	}
}

// SystemInstruction gathers system messages into one instruction, one part
// per message. It returns nil when there are none.
// Exported for testing.
func SystemInstruction(msgs []vawk.Message) *genai.Content {
	var parts []*genai.Part
	for _, msg := range msgs {
		if m, ok := msg.(vawk.SystemMessage); ok {
			parts = append(parts, &genai.Part{Text: m.Text})
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return &genai.Content{Parts: parts}
}

// ConvertMessages converts user and assistant messages to genai Contents,
// merging consecutive messages of the same role.
// Exported for testing.
func ConvertMessages(msgs []vawk.Message) []*genai.Content {
	var result []*genai.Content
	for _, msg := range msgs {
		var role string
		switch msg.(type) {
		case vawk.UserMessage:
			role = genai.RoleUser
		case vawk.AssistantMessage:
			role = genai.RoleModel
		default:
			continue
		}
		part := &genai.Part{Text: vawk.MessageText(msg)}
		if n := len(result); n > 0 && result[n-1].Role == role {
			result[n-1].Parts = append(result[n-1].Parts, part)
			continue
		}
		result = append(result, &genai.Content{Role: role, Parts: []*genai.Part{part}})
	}
	return result
}
