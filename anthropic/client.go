package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fwojciec/vawk"
)

// Interface compliance check.
var _ vawk.Model = (*Client)(nil)

// ErrEmptyReply is returned when a response carries no text.
var ErrEmptyReply = errors.New("anthropic: response has no text content")

// Client implements [vawk.Model] for the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

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

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		maxTokens:  defaultMaxTokens,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Label returns "anthropic:<model>".
func (c *Client) Label() string { return "anthropic:" + c.model }

// Call sends messages to the Messages API and returns the reply text.
func (c *Client) Call(ctx context.Context, messages []vawk.Message) (string, error) {
	body, err := json.Marshal(c.buildRequest(messages))
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", parseHTTPError(resp)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}
	var text strings.Builder
	for _, b := range out.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}
	if text.Len() == 0 {
		return "", ErrEmptyReply
	}
	return text.String(), nil
}

func (c *Client) buildRequest(messages []vawk.Message) apiRequest {
	req := apiRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    convertSystem(messages),
		Messages:  convertMessages(messages),
	}
	// The system layers are stable across a session; mark them cacheable.
	if n := len(req.System); n > 0 {
		req.System[n-1].CacheControl = &apiCacheControl{Type: "ephemeral"}
	}
	return req
}

// convertSystem collects system messages into top-level system blocks.
func convertSystem(msgs []vawk.Message) []apiTextBlock {
	var blocks []apiTextBlock
	for _, msg := range msgs {
		if m, ok := msg.(vawk.SystemMessage); ok {
			blocks = append(blocks, apiTextBlock{Type: "text", Text: m.Text})
		}
	}
	return blocks
}

// convertMessages maps user and assistant messages to API messages. The API
// requires alternating roles, so consecutive messages with the same role are
// merged into one message with several text blocks.
func convertMessages(msgs []vawk.Message) []apiMessage {
	var result []apiMessage
	for _, msg := range msgs {
		var role string
		switch msg.(type) {
		case vawk.UserMessage:
			role = "user"
		case vawk.AssistantMessage:
			role = "assistant"
		default:
			continue
		}
		block := apiTextBlock{Type: "text", Text: vawk.MessageText(msg)}
		if n := len(result); n > 0 && result[n-1].Role == role {
			result[n-1].Content = append(result[n-1].Content, block)
			continue
		}
		result = append(result, apiMessage{Role: role, Content: []apiTextBlock{block}})
	}
	return result
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Type == "" {
		return fmt.Errorf("anthropic: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("anthropic: %s: %s", apiErr.Error.Type, apiErr.Error.Message)
}
