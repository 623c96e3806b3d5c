package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to an OpenAI-compatible chat-completions API.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(name, baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

func (c *Client) Name() string {
	return c.name
}

// Invoke runs the model×retry double loop: candidate models outer, retry
// attempts inner. Auth failures abort immediately; transient failures
// advance to the next model without consuming a retry slot; a structured-
// output-mode rejection retries the same attempt without the schema.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	if len(req.Models) == 0 {
		return nil, fmt.Errorf("at least one model is required")
	}
	if strings.TrimSpace(req.UserPrompt) == "" {
		return nil, fmt.Errorf("user prompt must not be empty")
	}

	start := time.Now()
	var lastErr error

	for _, model := range req.Models {
		useSchema := len(req.Schema) > 0
		attempts := 0

		for {
			text, usage, err := c.complete(ctx, model, req, useSchema)
			if err == nil {
				c.logger.Debug("completion succeeded",
					zap.String("task", req.TaskLabel),
					zap.String("model", model),
					zap.Int("prompt_tokens", usage.PromptTokens),
					zap.Int("completion_tokens", usage.CompletionTokens),
					zap.Int("retry_attempts", attempts),
				)
				return &Response{
					Text:             text,
					ModelUsed:        model,
					Provider:         c.name,
					PromptTokens:     usage.PromptTokens,
					CompletionTokens: usage.CompletionTokens,
					EstimatedCostUSD: EstimateCost(model, usage.PromptTokens, usage.CompletionTokens, req.Pricing),
					Duration:         time.Since(start),
					RetryAttempts:    attempts,
				}, nil
			}

			lastErr = err

			pe, ok := err.(*Error)
			if !ok || pe.Kind == KindAuth || pe.Kind == KindBadRequest {
				return nil, err
			}

			if pe.Kind == KindSchemaMode && useSchema {
				// Retry the same model once without structured-output mode.
				useSchema = false
				attempts++
				continue
			}

			// Transient: give up on this model.
			break
		}
	}

	return nil, fmt.Errorf("no model produced a response: %w", lastErr)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage chatUsage `json:"usage"`
}

func (c *Client) complete(ctx context.Context, model string, req Request, useSchema bool) (string, chatUsage, error) {
	body := chatRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxOutputTokens,
	}

	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.UserPrompt})

	if useSchema {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		body.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: name, Strict: true, Schema: req.Schema},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", chatUsage{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", chatUsage{}, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("completion request failed",
			zap.String("task", req.TaskLabel),
			zap.String("model", model),
			zap.Error(err),
		)
		return "", chatUsage{}, newError(KindTransient, model, "the model backend is unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", chatUsage{}, newError(KindTransient, model, "failed to read the model response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", chatUsage{}, c.classifyError(model, resp.StatusCode, respBody, useSchema, req.TaskLabel)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", chatUsage{}, newError(KindTransient, model, "the model returned an unreadable response")
	}

	if len(parsed.Choices) == 0 {
		return "", chatUsage{}, newError(KindTransient, model, "the model returned no choices")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", chatUsage{}, newError(KindTransient, model, "the model returned an empty response")
	}

	return text, parsed.Usage, nil
}

// classifyError maps a backend status to a safe, non-leaking error. The raw
// body is logged for diagnosis only.
func (c *Client) classifyError(model string, status int, body []byte, useSchema bool, task string) *Error {
	c.logger.Error("completion API error",
		zap.String("task", task),
		zap.String("model", model),
		zap.Int("status", status),
		zap.String("body", string(body)),
	)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newError(KindAuth, model, "authentication with the model backend failed")
	case status == http.StatusTooManyRequests || status >= 500:
		return newError(KindTransient, model, "the model backend is temporarily unavailable")
	case useSchema && isSchemaRejection(body):
		return newError(KindSchemaMode, model, "the model backend does not support structured output")
	default:
		return newError(KindBadRequest, model, "the model backend rejected the request")
	}
}

func isSchemaRejection(body []byte) bool {
	s := strings.ToLower(string(body))
	return strings.Contains(s, "response_format") || strings.Contains(s, "json_schema")
}
