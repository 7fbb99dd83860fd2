package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is where a local Ollama install listens.
	DefaultBaseURL     = "http://localhost:11434"
	defaultHTTPTimeout = 120 * time.Second
	chatPath           = "/api/chat"
	tagsPath           = "/api/tags"
)

// Config captures the runtime settings required to talk to Ollama.
type Config struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// DefaultHTTPTimeout returns the default timeout used for Ollama requests.
func DefaultHTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

// Client wraps the Ollama chat and model listing APIs.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an Ollama client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = DefaultBaseURL
	}
	return client
}

// Model describes one locally available model.
type Model struct {
	Name       string    `json:"name"`
	Model      string    `json:"model"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("ollama request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatResponse struct {
	Model      string       `json:"model"`
	Message    *chatMessage `json:"message"`
	Done       bool         `json:"done"`
	DoneReason string       `json:"done_reason"`
	Error      string       `json:"error"`
}

type tagsResponse struct {
	Models []Model `json:"models"`
}

// Model returns the configured default model.
func (c *Client) Model() string {
	return c.cfg.Model
}

// DescribeImage sends prompt together with one image and returns the primary
// text of the reply. An empty model selects the configured default.
func (c *Client) DescribeImage(ctx context.Context, model, prompt string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("ollama chat: image required")
	}
	return c.Chat(ctx, model, prompt, image)
}

// Chat issues a single non-streaming chat request with optional images. A
// reply with blank content is returned as an empty string.
func (c *Client) Chat(ctx context.Context, model, prompt string, images ...[]byte) (string, error) {
	const op = "ollama chat"
	model = strings.TrimSpace(model)
	if model == "" {
		model = c.cfg.Model
	}
	if model == "" {
		return "", fmt.Errorf("%s: model required", op)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%s: prompt required", op)
	}

	message := chatMessage{Role: "user", Content: prompt}
	for _, img := range images {
		message.Images = append(message.Images, base64.StdEncoding.EncodeToString(img))
	}
	payload := chatRequest{
		Model:    model,
		Messages: []chatMessage{message},
		Stream:   false,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%s: encode body: %w", op, err)
	}

	body, err := c.do(ctx, http.MethodPost, chatPath, encoded)
	if err != nil {
		return "", err
	}
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: decode response: %w (payload snippet: %s)", op, err, summarizePayloadSnippet(string(body)))
	}
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return "", fmt.Errorf("%s: api error: %s", op, msg)
	}
	if resp.Message == nil {
		return "", fmt.Errorf("%s: response has no message (payload snippet: %s)", op, summarizePayloadSnippet(string(body)))
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// ListModels returns the models available on the server.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	body, err := c.do(ctx, http.MethodGet, tagsPath, nil)
	if err != nil {
		return nil, err
	}
	var resp tagsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama tags: decode response: %w", err)
	}
	return resp.Models, nil
}

// HasModel reports whether name is present in models. A name without a tag
// matches the ":latest" tag.
func HasModel(models []Model, name string) bool {
	want := normalizeModelName(name)
	if want == "" {
		return false
	}
	for _, m := range models {
		if normalizeModelName(m.Name) == want || normalizeModelName(m.Model) == want {
			return true
		}
	}
	return false
}

func normalizeModelName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if !strings.Contains(name, ":") {
		name += ":latest"
	}
	return name
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return nil, fmt.Errorf("ollama request: build url: %w", err)
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("ollama request: new request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
