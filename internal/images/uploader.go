// Package images uploads pattern photos to an external image host and
// returns the public URL the host assigns.
package images

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultUploadTimeout = 30 * time.Second

var (
	errMissingUploadURL = errors.New("upload url is required")
	errMissingPreset    = errors.New("upload preset is required")
	noOpLogger          = zap.NewNop()

	// ErrUploadRejected indicates the image host refused the upload.
	ErrUploadRejected = errors.New("images: upload rejected by host")
)

// Uploader accepts image bytes and returns the hosted URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)
}

// HostedUploaderConfig configures the unsigned-preset upload client.
type HostedUploaderConfig struct {
	UploadURL    string
	UploadPreset string
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// HostedUploader posts images as multipart form data to an unsigned upload
// endpoint and reads the secure URL from the JSON response.
type HostedUploader struct {
	uploadURL    string
	uploadPreset string
	client       *http.Client
	logger       *zap.Logger
}

// NewHostedUploader constructs the upload client.
func NewHostedUploader(cfg HostedUploaderConfig) (*HostedUploader, error) {
	if cfg.UploadURL == "" {
		return nil, errMissingUploadURL
	}
	if cfg.UploadPreset == "" {
		return nil, errMissingPreset
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultUploadTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &HostedUploader{
		uploadURL:    cfg.UploadURL,
		uploadPreset: cfg.UploadPreset,
		client:       client,
		logger:       logger,
	}, nil
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
}

// Upload sends the image and returns its hosted URL.
func (u *HostedUploader) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("images: build form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("images: read content: %w", err)
	}
	if err := writer.WriteField("upload_preset", u.uploadPreset); err != nil {
		return "", fmt.Errorf("images: build form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("images: build form: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("images: build request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())

	response, err := u.client.Do(request)
	if err != nil {
		u.logger.Error("image upload failed", zap.Error(err))
		return "", fmt.Errorf("images: upload: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		u.logger.Error("image upload rejected",
			zap.Int("status", response.StatusCode),
			zap.ByteString("body", payload))
		return "", fmt.Errorf("%w: status %d", ErrUploadRejected, response.StatusCode)
	}

	var decoded uploadResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("images: decode response: %w", err)
	}
	if decoded.SecureURL == "" {
		return "", fmt.Errorf("%w: response carried no url", ErrUploadRejected)
	}
	return decoded.SecureURL, nil
}
