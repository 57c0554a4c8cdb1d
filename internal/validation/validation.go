package validation

import (
	"fmt"

	"github.com/burnbox/backend/pkg/utils"
)

// Error is a request-shape failure. Messages are safe to hand back to the
// client verbatim.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newError(field, message string) *Error {
	return &Error{Field: field, Message: message}
}

// UploadPolicy is the size and content-type gate applied before any
// encryption work runs.
type UploadPolicy struct {
	MaxSize      int64
	AllowedMimes []string
}

// ErrTooLarge distinguishes oversize uploads so the handler can answer
// 413 instead of a generic 400.
var ErrTooLarge = newError("file", "file too large")

func (p UploadPolicy) CheckUpload(size int64, mimeType string) error {
	if size == 0 {
		return newError("file", "file is empty")
	}
	if size > p.MaxSize {
		return ErrTooLarge
	}
	if !p.mimeAllowed(mimeType) {
		return newError("file", "unsupported file type")
	}
	return nil
}

func (p UploadPolicy) mimeAllowed(mimeType string) bool {
	for _, allowed := range p.AllowedMimes {
		if mimeType == allowed {
			return true
		}
	}
	return false
}

// CheckToken rejects anything that is not a canonical UUID before the
// request reaches the database.
func CheckToken(token string) error {
	if token == "" {
		return newError("token", "token is required")
	}
	if !utils.ValidTransferToken(token) {
		return newError("token", "invalid token format")
	}
	return nil
}
