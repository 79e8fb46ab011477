package keygen

import (
	"strings"
	"testing"
)

func TestGenerateAccessKeyLengthAndAlphabet(t *testing.T) {
	key, err := GenerateAccessKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(key) != AccessKeyLength {
		t.Fatalf("expected %d characters, got %d (%q)", AccessKeyLength, len(key), key)
	}
	for _, r := range key {
		if !strings.ContainsRune(Alphabet, r) {
			t.Fatalf("key %q contains %q outside the base62 alphabet", key, r)
		}
	}
}

func TestGenerateKeysDiffer(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		key, err := GenerateAccessKey()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate key generated: %q", key)
		}
		seen[key] = struct{}{}
	}
}

func TestGenerateRejectsInvalidLength(t *testing.T) {
	if _, err := Generate(0); err == nil {
		t.Fatalf("expected error for zero length")
	}
	if _, err := Generate(-3); err == nil {
		t.Fatalf("expected error for negative length")
	}
}
