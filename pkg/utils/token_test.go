package utils

import "testing"

func TestNewTransferToken(t *testing.T) {
	token := NewTransferToken()

	if len(token) != 36 {
		t.Fatalf("expected 36-char token, got %d: %q", len(token), token)
	}
	if !ValidTransferToken(token) {
		t.Fatalf("freshly issued token failed shape check: %q", token)
	}
}

func TestNewTransferTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token := NewTransferToken()
		if seen[token] {
			t.Fatalf("duplicate token issued: %q", token)
		}
		seen[token] = true
	}
}

func TestValidTransferToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "canonical uuid", token: "3b9f8a6e-1c4d-4f2a-9b7e-d85f0c2a1e43", want: true},
		{name: "uppercase uuid", token: "3B9F8A6E-1C4D-4F2A-9B7E-D85F0C2A1E43", want: true},
		{name: "empty", token: "", want: false},
		{name: "missing hyphens", token: "3b9f8a6e1c4d4f2a9b7ed85f0c2a1e43", want: false},
		{name: "urn form", token: "urn:uuid:3b9f8a6e-1c4d-4f2a-9b7e-d85f0c2a1e43", want: false},
		{name: "trailing garbage", token: "3b9f8a6e-1c4d-4f2a-9b7e-d85f0c2a1e43x", want: false},
		{name: "non-hex characters", token: "3b9f8a6e-1c4d-4f2a-9b7e-d85f0c2a1g43", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidTransferToken(tt.token); got != tt.want {
				t.Fatalf("ValidTransferToken(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}
