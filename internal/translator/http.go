package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/types"
)

// DefaultHTTPTimeout is the client timeout for the JSON backend.
const DefaultHTTPTimeout = 180 * time.Second

// httpRequest is the body posted for each text.
type httpRequest struct {
	Model          string `json:"model,omitempty"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Text           string `json:"text"`
}

type httpResponse struct {
	Translation string `json:"translation"`
	Error       *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// HTTPTranslator posts each text to a JSON translation endpoint.
type HTTPTranslator struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// HTTPConfig HTTP 翻译后端配置
type HTTPConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewHTTPTranslator creates the JSON backend.
func NewHTTPTranslator(cfg HTTPConfig) (*HTTPTranslator, error) {
	if cfg.Endpoint == "" {
		return nil, types.NewAppError(types.ErrConfig, "http translation endpoint is empty", nil)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTPTranslator{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Translate implements Translator, one request per text.
func (h *HTTPTranslator) Translate(ctx context.Context, texts []string, src, tgt string) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		res, err := h.post(ctx, text, src, tgt)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

func (h *HTTPTranslator) post(ctx context.Context, text, src, tgt string) (string, error) {
	body, err := json.Marshal(httpRequest{
		Model:          h.model,
		SourceLanguage: src,
		TargetLanguage: tgt,
		Text:           text,
	})
	if err != nil {
		return "", types.NewAppError(types.ErrAPICall, "failed to marshal request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrAPICall, "failed to create HTTP request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", types.NewAppError(types.ErrNetwork, "translation request failed", err)
	}
	defer resp.Body.Close()

	logger.Debug("translation response received", logger.Int("statusCode", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.NewAppError(types.ErrNetwork, "failed to read translation response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, data)
	}

	var parsed httpResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.Error != nil {
		return "", types.NewAppErrorWithDetails(types.ErrAPICall, "translation service returned error", parsed.Error.Message, nil)
	}
	return parsed.Translation, nil
}

// statusError maps a non-200 reply. Authentication and request errors are
// permanent and stop the retry loop.
func statusError(status int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	details := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		details = errResp.Error.Message
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return backoff.Permanent(types.NewAppErrorWithDetails(types.ErrAPICall, "API authentication failed", "invalid API key or unauthorized access", nil))
	case http.StatusBadRequest:
		return backoff.Permanent(types.NewAppErrorWithDetails(types.ErrAPICall, "invalid API request", details, nil))
	case http.StatusTooManyRequests:
		return types.NewAppErrorWithDetails(types.ErrAPIRateLimit, "API rate limit exceeded", details, nil)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return types.NewAppErrorWithDetails(types.ErrAPICall, "API server error", fmt.Sprintf("status %d: %s", status, details), nil)
	default:
		return types.NewAppErrorWithDetails(types.ErrAPICall, "API request failed", fmt.Sprintf("status %d: %s", status, details), nil)
	}
}
