package utils

import (
	"strings"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("CorrectHorse1")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if !CheckPasswordHash("CorrectHorse1", hash) {
		t.Error("hash does not verify against the original password")
	}
	if CheckPasswordHash("WrongHorse1", hash) {
		t.Error("hash verifies against a different password")
	}
}

func TestGenerateRememberToken(t *testing.T) {
	token, err := GenerateRememberToken()
	if err != nil {
		t.Fatalf("GenerateRememberToken returned error: %v", err)
	}

	if len(token) != 60 {
		t.Errorf("token length = %d, want 60", len(token))
	}
	for _, c := range token {
		if !strings.ContainsRune(rememberTokenAlphabet, c) {
			t.Errorf("token contains character %q outside the alphabet", c)
		}
	}

	other, err := GenerateRememberToken()
	if err != nil {
		t.Fatalf("GenerateRememberToken returned error: %v", err)
	}
	if token == other {
		t.Error("two generated tokens are identical")
	}
}

func TestGenerateRandomTokenLength(t *testing.T) {
	token, err := GenerateRandomToken(32)
	if err != nil {
		t.Fatalf("GenerateRandomToken returned error: %v", err)
	}
	// Hex encoding doubles the byte count
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}
}
