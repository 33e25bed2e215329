package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/edututor-ai/backend/internal/metrics"
)

const (
	DefaultURL     = "https://api-inference.huggingface.co/models/google/flan-t5-xl"
	DefaultTimeout = 60 * time.Second

	NoAnswer         = "⚠️ No answer returned."
	UnexpectedFormat = "⚠️ Unexpected response format."
	requestErrorText = "⚠️ Request error: "

	promptTemplate = "Answer this clearly: %s"

	// responses larger than this are not something the page can show anyway
	maxBodyBytes = 1 << 20
)

// Outcome classifies how a call to the endpoint ended.
type Outcome string

const (
	OutcomeAnswer           Outcome = "answer"
	OutcomeRequestError     Outcome = "request_error"
	OutcomeNoAnswer         Outcome = "no_answer"
	OutcomeUnexpectedFormat Outcome = "unexpected_format"
)

// HuggingFaceClient forwards questions to a Hugging Face text-generation
// (or summarization) inference endpoint.
type HuggingFaceClient struct {
	url    string       // full model URL
	token  string       // bearer credential, "hf_..."
	client *http.Client // reused across calls
	logger *slog.Logger
}

// Compile-time check: *HuggingFaceClient satisfies the Asker interface.
var _ Asker = (*HuggingFaceClient)(nil)

// RequestError is returned by query when the endpoint could not be reached
// or did not answer with a 2xx status.
type RequestError struct {
	Reason     string
	StatusCode int // 0 when no response was received
	Wrapped    error
}

func (e *RequestError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Wrapped)
	}
	return e.Reason
}

func (e *RequestError) Unwrap() error {
	return e.Wrapped
}

// NewHuggingFaceClient creates a client for the given model URL. A zero
// timeout means DefaultTimeout.
func NewHuggingFaceClient(url, token string, timeout time.Duration, logger *slog.Logger) *HuggingFaceClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HuggingFaceClient{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ============================================================================
// Asker interface
// ============================================================================

// Ask sends the question to the endpoint and returns exactly one of: the
// answer text, a "Request error" description, or a placeholder for a
// response it could not read. It is a single attempt; nothing is retried.
func (c *HuggingFaceClient) Ask(ctx context.Context, question string) string {
	start := time.Now()

	body, err := c.query(ctx, question)
	elapsed := time.Since(start)
	metrics.InferenceDuration.Observe(elapsed.Seconds())

	if err != nil {
		metrics.InferenceCalls.WithLabelValues(string(OutcomeRequestError)).Inc()
		c.logger.Warn("inference request failed",
			"error", err,
			"duration", elapsed,
		)
		return requestErrorText + err.Error()
	}

	answer, outcome := Normalize(body)
	metrics.InferenceCalls.WithLabelValues(string(outcome)).Inc()
	c.logger.Info("inference request completed",
		"outcome", outcome,
		"duration", elapsed,
		"question_len", len(question),
	)
	return answer
}

// ============================================================================
// Endpoint communication
// ============================================================================

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// query performs the POST and returns the raw response body.
func (c *HuggingFaceClient) query(ctx context.Context, question string) ([]byte, error) {
	jsonData, err := json.Marshal(inferenceRequest{
		Inputs: fmt.Sprintf(promptTemplate, question),
	})
	if err != nil {
		return nil, &RequestError{Reason: "failed to marshal request", Wrapped: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &RequestError{Reason: "failed to create request", Wrapped: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &RequestError{Reason: "request failed", Wrapped: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &RequestError{Reason: "failed to read response", StatusCode: resp.StatusCode, Wrapped: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := fmt.Sprintf("endpoint returned status %d", resp.StatusCode)
		if detail := errorDetail(body); detail != "" {
			reason += ": " + detail
		}
		return nil, &RequestError{Reason: reason, StatusCode: resp.StatusCode}
	}

	return body, nil
}

// errorDetail pulls the "error" message Hugging Face puts in failure bodies.
func errorDetail(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Error)
}

// ============================================================================
// Response normalization
// ============================================================================

// answerFields are tried in order; generation models fill the first,
// summarization models the second.
var answerFields = []string{"generated_text", "summary_text"}

// Normalize turns a successful response body into display text.
//
//	[{"generated_text": "X"}, ...] → "X"
//	{"summary_text": "Y"}          → "Y"
//	[] / {} / objects without text → NoAnswer
//	anything else                  → UnexpectedFormat
func Normalize(body []byte) (string, Outcome) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return UnexpectedFormat, OutcomeUnexpectedFormat
	}

	switch v := payload.(type) {
	case []any:
		if len(v) == 0 {
			return NoAnswer, OutcomeNoAnswer
		}
		first, ok := v[0].(map[string]any)
		if !ok {
			return UnexpectedFormat, OutcomeUnexpectedFormat
		}
		return pickAnswer(first)
	case map[string]any:
		return pickAnswer(v)
	default:
		return UnexpectedFormat, OutcomeUnexpectedFormat
	}
}

func pickAnswer(record map[string]any) (string, Outcome) {
	for _, field := range answerFields {
		if text, ok := record[field].(string); ok && text != "" {
			return text, OutcomeAnswer
		}
	}
	return NoAnswer, OutcomeNoAnswer
}
