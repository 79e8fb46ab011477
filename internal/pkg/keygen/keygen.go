package keygen

import (
	"crypto/rand"
	"fmt"
)

// Alphabet used for access keys (62 characters: 0-9, a-z, A-Z)
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// AccessKeyLength is the fixed length of issued access keys.
const AccessKeyLength = 12

// Generate creates a cryptographically secure random Base62 token.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid key length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 248 is the largest multiple of 62 below 256.
	const maxRandomByte = 248

	key := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			key[written] = Alphabet[int(b)%len(Alphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(key), nil
}

// GenerateAccessKey creates a new opaque access key of the standard length.
func GenerateAccessKey() (string, error) {
	return Generate(AccessKeyLength)
}
