package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

const (
	defaultAPIVersion = "2023-06-01"
	messagesPath      = "/v1/messages"
)

// Request is the messages API payload.
type Request struct {
	Model         string    `json:"model"`
	Messages      []Message `json:"messages"`
	System        string    `json:"system,omitempty"`
	MaxTokens     int       `json:"max_tokens"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
	Temperature   *float64  `json:"temperature,omitempty"`
	TopP          *float64  `json:"top_p,omitempty"`
	Stream        bool      `json:"stream"`
}

type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	Source *ImageSource `json:"source,omitempty"`
}

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

func NewImageBlock(mediaType string, base64Data string) ContentBlock {
	return ContentBlock{
		Type: "image",
		Source: &ImageSource{
			Type:      "base64",
			MediaType: mediaType,
			Data:      base64Data,
		},
	}
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error Error `json:"error"`
}

// RequestError is a non-2xx response, surfaced so callers can classify it.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("claude request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Anthropic messages endpoint.
type Client struct {
	httpClient *http.Client
	apiKey     string
	APIVersion string
	BaseURL    string
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		c.APIVersion = version
	}
}

func NewClient(apiKey string, baseURL string, options ...ClientOption) *Client {
	ret := &Client{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		BaseURL:    baseURL,
		APIVersion: defaultAPIVersion,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.APIVersion)
	req.Header.Set("Content-Type", "application/json")
}

// StreamMessages posts a streaming messages request and returns a channel of
// parsed SSE events plus a channel carrying at most one terminal transport
// error. The events channel closes when the stream ends or ctx is
// cancelled.
func (c *Client) StreamMessages(ctx context.Context, req *Request) (<-chan StreamingEvent, <-chan error, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, err
	}

	req_, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+messagesPath, bytes.NewBuffer(body))
	if err != nil {
		return nil, nil, err
	}
	c.setHeaders(req_)

	resp, err := c.httpClient.Do(req_)
	if err != nil {
		return nil, nil, errors.Wrap(err, "claude request failed")
	}

	if resp.StatusCode != http.StatusOK {
		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, nil, err
		}
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error.Message != "" {
			return nil, nil, &RequestError{StatusCode: resp.StatusCode, Body: errorResp.Error.Message}
		}
		return nil, nil, &RequestError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	events := make(chan StreamingEvent)
	errCh := make(chan error, 1)
	go func() {
		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)
		defer close(events)

		if err := decodeSSE(ctx, resp.Body, events); err != nil {
			errCh <- err
		}
	}()

	return events, errCh, nil
}
