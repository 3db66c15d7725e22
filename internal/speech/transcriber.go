// Package speech converts recorded audio into text through an external
// speech-to-text endpoint.
package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultRequestTimeout = 60 * time.Second

var (
	errMissingEndpoint = errors.New("transcription endpoint is required")
	noOpLogger         = zap.NewNop()

	// ErrTranscriptionRejected indicates the speech service refused the audio.
	ErrTranscriptionRejected = errors.New("speech: transcription rejected by service")
)

// TranscriberConfig configures the HTTP transcription client.
type TranscriberConfig struct {
	Endpoint   string
	AuthToken  string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// HTTPTranscriber posts audio bytes to a speech-to-text endpoint and reads
// the final transcript from the JSON response. Interim results never leave
// the service.
type HTTPTranscriber struct {
	endpoint  string
	authToken string
	client    *http.Client
	logger    *zap.Logger
}

// NewHTTPTranscriber constructs the transcription client.
func NewHTTPTranscriber(cfg TranscriberConfig) (*HTTPTranscriber, error) {
	if cfg.Endpoint == "" {
		return nil, errMissingEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &HTTPTranscriber{
		endpoint:  cfg.Endpoint,
		authToken: cfg.AuthToken,
		client:    client,
		logger:    logger,
	}, nil
}

type transcriptResponse struct {
	Text string `json:"text"`
}

// Transcribe sends the audio and returns the final transcript.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, audio)
	if err != nil {
		return "", fmt.Errorf("speech: build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/octet-stream")
	if t.authToken != "" {
		request.Header.Set("Authorization", "Bearer "+t.authToken)
	}

	response, err := t.client.Do(request)
	if err != nil {
		t.logger.Error("transcription request failed", zap.Error(err))
		return "", fmt.Errorf("speech: transcribe: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		t.logger.Error("transcription rejected",
			zap.Int("status", response.StatusCode),
			zap.ByteString("body", payload))
		return "", fmt.Errorf("%w: status %d", ErrTranscriptionRejected, response.StatusCode)
	}

	var decoded transcriptResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("speech: decode response: %w", err)
	}
	return decoded.Text, nil
}
