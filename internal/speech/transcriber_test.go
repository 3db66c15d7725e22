package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranscribePostsAudioAndReturnsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "audio-bytes" {
			t.Errorf("unexpected body: %q", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"row twelve done"}`))
	}))
	defer server.Close()

	transcriber, err := NewHTTPTranscriber(TranscriberConfig{
		Endpoint:  server.URL,
		AuthToken: "test-token",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, err := transcriber.Transcribe(context.Background(), strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "row twelve done" {
		t.Fatalf("unexpected transcript: %q", text)
	}
}

func TestTranscribeRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	transcriber, err := NewHTTPTranscriber(TranscriberConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = transcriber.Transcribe(context.Background(), strings.NewReader("audio-bytes"))
	if !errors.Is(err, ErrTranscriptionRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestNewHTTPTranscriberRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPTranscriber(TranscriberConfig{}); err == nil {
		t.Fatalf("expected error for missing endpoint")
	}
}
