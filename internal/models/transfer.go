package models

import "time"

// Transfer is a single-use encrypted file handoff. The row is created once
// at upload and mutated exactly once, when Consumed flips false to true
// during redemption. Everything else is immutable provenance.
type Transfer struct {
	BaseModel
	Token        string    `json:"token" gorm:"type:varchar(36);uniqueIndex;not null"`
	StorageKey   string    `json:"-" gorm:"type:text;uniqueIndex;not null"`
	OriginalName string    `json:"originalName" gorm:"type:varchar(255);not null"`
	Size         int64     `json:"size" gorm:"not null"`
	MimeType     string    `json:"mimeType" gorm:"type:varchar(255);not null"`
	Consumed     bool      `json:"consumed" gorm:"not null;default:false"`
	ExpiresAt    time.Time `json:"expiresAt" gorm:"not null;index"`
}

func (Transfer) TableName() string {
	return "transfers"
}

// Redeemable reports whether the transfer can still be handed out at the
// given instant. Expiry is evaluated lazily on every read; there is no
// background sweeper.
func (t *Transfer) Redeemable(now time.Time) bool {
	return !t.Consumed && now.Before(t.ExpiresAt)
}

// Expired reports whether the deadline has passed. Expiry wins over the
// consumed state when both apply.
func (t *Transfer) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
