package auth

import (
	"errors"
	"testing"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("knit1purl2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "knit1purl2" {
		t.Fatalf("hash must not equal the plaintext")
	}
	if err := ComparePassword(hash, "knit1purl2"); err != nil {
		t.Fatalf("expected matching password, got %v", err)
	}
}

func TestComparePasswordRejectsWrongPassword(t *testing.T) {
	hash, err := HashPassword("knit1purl2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ComparePassword(hash, "wrong-password"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected wrong password error, got %v", err)
	}
}
