package validation

import (
	"errors"
	"testing"

	"github.com/burnbox/backend/pkg/utils"
)

func testPolicy() UploadPolicy {
	return UploadPolicy{
		MaxSize:      1024,
		AllowedMimes: []string{"application/pdf", "text/plain"},
	}
}

func TestCheckUpload(t *testing.T) {
	policy := testPolicy()

	tests := []struct {
		name     string
		size     int64
		mimeType string
		wantErr  string
	}{
		{
			name:     "valid upload",
			size:     512,
			mimeType: "text/plain",
		},
		{
			name:     "upload at exact size limit",
			size:     1024,
			mimeType: "application/pdf",
		},
		{
			name:     "empty file",
			size:     0,
			mimeType: "text/plain",
			wantErr:  "file: file is empty",
		},
		{
			name:     "oversize file",
			size:     1025,
			mimeType: "text/plain",
			wantErr:  "file: file too large",
		},
		{
			name:     "disallowed mime type",
			size:     10,
			mimeType: "application/x-msdownload",
			wantErr:  "file: unsupported file type",
		},
		{
			name:     "empty mime type",
			size:     10,
			mimeType: "",
			wantErr:  "file: unsupported file type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.CheckUpload(tt.size, tt.mimeType)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCheckUploadOversizeIsTyped(t *testing.T) {
	err := testPolicy().CheckUpload(4096, "text/plain")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestCheckToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "canonical uuid", token: utils.NewTransferToken()},
		{name: "empty token", token: "", wantErr: true},
		{name: "too short", token: "abc123", wantErr: true},
		{name: "right length, not a uuid", token: "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz", wantErr: true},
		{name: "uuid without hyphens", token: "0123456789abcdef0123456789abcdef", wantErr: true},
		{name: "path traversal attempt", token: "../../../etc/passwd-0000-0000-000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckToken(tt.token)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %q", tt.token)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
