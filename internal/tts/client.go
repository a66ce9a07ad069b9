package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/h2non/filetype"

	"planreel/internal/config"
	"planreel/internal/media/audio"
	"planreel/internal/narration"
)

const (
	speechPath            = "/audio/speech"
	modelsPath            = "/models"
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultMaxChars       = 4000
)

// ErrEmptyText reports a synthesis request with no narration.
var ErrEmptyText = errors.New("tts: narration text is empty")

// ErrMissingAPIKey reports a client used without an API key. It classifies
// as a configuration error so batch synthesis stops at the first scene.
var ErrMissingAPIKey error = missingKeyError{}

type missingKeyError struct{}

func (missingKeyError) Error() string     { return "tts: api key required" }
func (missingKeyError) ErrorKind() string { return "configuration" }

// Synthesizer turns narration text into a WAV file at dst.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice, dst string) error
}

// Voice selects how narration is spoken.
type Voice struct {
	Name  string
	Model string
	Speed float64
}

// Config captures the runtime settings required to talk to the TTS API.
type Config struct {
	APIKey         string
	BaseURL        string
	MaxChars       int
	TimeoutSeconds int
	RetryAttempts  int
}

// ConfigFrom extracts client settings from application configuration.
func ConfigFrom(cfg *config.Config) (Config, Voice) {
	return Config{
			APIKey:         cfg.TTS.APIKey,
			BaseURL:        cfg.TTS.BaseURL,
			MaxChars:       cfg.TTS.MaxChars,
			TimeoutSeconds: cfg.TTS.TimeoutSeconds,
			RetryAttempts:  cfg.TTS.RetryAttempts,
		}, Voice{
			Name:  cfg.TTS.Voice,
			Model: cfg.TTS.Model,
			Speed: cfg.TTS.Speed,
		}
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tts request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// ErrorKind classifies the failure for pipeline status mapping.
func (e *StatusError) ErrorKind() string {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return "configuration"
	}
	return "external"
}

// Client is a Synthesizer backed by an HTTP speech endpoint.
type Client struct {
	cfg   Config
	http  *resty.Client
	probe *resty.Client

	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// NewClient constructs a TTS client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	}

	client := &Client{
		cfg:            cfg,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}

	client.http = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryAttempts).
		SetRetryWaitTime(client.retryBaseDelay).
		SetRetryMaxWaitTime(client.retryMaxDelay).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
		})
	client.probe = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout)
	return client
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

// Synthesize voices text and writes a WAV to dst.
func (c *Client) Synthesize(ctx context.Context, text string, voice Voice, dst string) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("tts synthesize: %w", ErrMissingAPIKey)
	}
	chunks := narration.Chunk(text, c.cfg.MaxChars)
	if len(chunks) == 0 {
		return ErrEmptyText
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("tts synthesize: create directory: %w", err)
	}

	parts := make([]string, 0, len(chunks))
	defer func() {
		for _, part := range parts {
			_ = os.Remove(part)
		}
	}()
	for i, chunk := range chunks {
		payload, err := c.request(ctx, chunk, voice)
		if err != nil {
			return fmt.Errorf("tts synthesize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		part := fmt.Sprintf("%s.part%02d", dst, i)
		if err := os.WriteFile(part, payload, 0o644); err != nil {
			return fmt.Errorf("tts synthesize: write chunk: %w", err)
		}
		parts = append(parts, part)
	}

	// Concat also validates every chunk as decodable WAV before dst appears.
	if err := audio.Concat(dst, parts...); err != nil {
		return fmt.Errorf("tts synthesize: assemble wav: %w", err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, text string, voice Voice) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.cfg.APIKey).
		SetHeader("Accept", "audio/wav").
		SetBody(speechRequest{
			Model:          voice.Model,
			Input:          text,
			Voice:          voice.Name,
			ResponseFormat: "wav",
			Speed:          voice.Speed,
		}).
		Post(speechPath)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	if resp.IsError() {
		return nil, &StatusError{StatusCode: resp.StatusCode(), Body: summarize(resp.Body())}
	}
	body := resp.Body()
	if !filetype.Is(body, "wav") {
		return nil, fmt.Errorf("tts request: response is not wav audio (%d bytes)", len(body))
	}
	return body, nil
}

// HealthCheck confirms the endpoint is reachable and accepts the API key by
// listing models. It does not retry.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("tts health check: %w", ErrMissingAPIKey)
	}
	resp, err := c.probe.R().
		SetContext(ctx).
		SetAuthToken(c.cfg.APIKey).
		Get(modelsPath)
	if err != nil {
		return fmt.Errorf("tts health check: %w", err)
	}
	if resp.IsError() {
		return &StatusError{StatusCode: resp.StatusCode(), Body: summarize(resp.Body())}
	}
	return nil
}

func summarize(body []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
