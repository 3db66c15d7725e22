package images

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUploadPostsMultipartFormAndReturnsSecureURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
		}
		if got := r.FormValue("upload_preset"); got != "yarnscape-unsigned" {
			t.Errorf("unexpected upload preset: %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
		} else {
			defer file.Close()
			if header.Filename != "cover.jpg" {
				t.Errorf("unexpected filename: %q", header.Filename)
			}
			content, _ := io.ReadAll(file)
			if string(content) != "jpeg-bytes" {
				t.Errorf("unexpected file content: %q", content)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"secure_url":"https://img.example.com/cover.jpg"}`))
	}))
	defer server.Close()

	uploader, err := NewHostedUploader(HostedUploaderConfig{
		UploadURL:    server.URL,
		UploadPreset: "yarnscape-unsigned",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := uploader.Upload(context.Background(), "cover.jpg", strings.NewReader("jpeg-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://img.example.com/cover.jpg" {
		t.Fatalf("unexpected url: %q", url)
	}
}

func TestUploadRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid preset"}}`))
	}))
	defer server.Close()

	uploader, err := NewHostedUploader(HostedUploaderConfig{
		UploadURL:    server.URL,
		UploadPreset: "yarnscape-unsigned",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = uploader.Upload(context.Background(), "cover.jpg", strings.NewReader("jpeg-bytes"))
	if !errors.Is(err, ErrUploadRejected) {
		t.Fatalf("expected upload rejection, got %v", err)
	}
}

func TestUploadRejectsResponseWithoutURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	uploader, err := NewHostedUploader(HostedUploaderConfig{
		UploadURL:    server.URL,
		UploadPreset: "yarnscape-unsigned",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = uploader.Upload(context.Background(), "cover.jpg", strings.NewReader("jpeg-bytes"))
	if !errors.Is(err, ErrUploadRejected) {
		t.Fatalf("expected rejection for missing url, got %v", err)
	}
}

func TestNewHostedUploaderRequiresConfiguration(t *testing.T) {
	if _, err := NewHostedUploader(HostedUploaderConfig{UploadPreset: "p"}); err == nil {
		t.Fatalf("expected error for missing upload url")
	}
	if _, err := NewHostedUploader(HostedUploaderConfig{UploadURL: "https://example.com"}); err == nil {
		t.Fatalf("expected error for missing preset")
	}
}
