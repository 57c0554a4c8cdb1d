package utils

import "github.com/google/uuid"

// NewTransferToken returns the bearer credential for a transfer: a random
// version-4 UUID, 122 bits of entropy, safe in a URL path segment.
func NewTransferToken() string {
	return uuid.New().String()
}

// ValidTransferToken reports whether a string has the canonical 36-char
// hyphenated UUID shape. Requests failing this are rejected before any
// database lookup.
func ValidTransferToken(token string) bool {
	if len(token) != 36 {
		return false
	}
	_, err := uuid.Parse(token)
	return err == nil
}
