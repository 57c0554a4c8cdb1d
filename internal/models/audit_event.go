package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AuditActionUpload   = "upload"
	AuditActionDownload = "download"
	AuditActionView     = "view"
	AuditActionAnalyze  = "analyze"
)

// AuditEvent is an append-only record of every significant action against a
// transfer. It does NOT use BaseModel because audit rows are never updated
// or soft-deleted.
type AuditEvent struct {
	ID        uuid.UUID              `json:"id" gorm:"type:uuid;primaryKey"`
	Token     string                 `json:"token" gorm:"type:varchar(36);not null;index"`
	Action    string                 `json:"action" gorm:"type:varchar(20);not null;index"`
	IPAddress string                 `json:"ipAddress" gorm:"type:varchar(45)"`
	UserAgent string                 `json:"userAgent" gorm:"type:text"`
	Details   map[string]interface{} `json:"details,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time              `json:"createdAt" gorm:"not null;index"`
}

func (a *AuditEvent) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (AuditEvent) TableName() string {
	return "audit_events"
}

// AuditExportCursor tracks the last successful export timestamp so the
// periodic object-store export only ships new rows.
type AuditExportCursor struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	LastExportAt  time.Time `json:"lastExportAt" gorm:"not null"`
	ExportedCount int64     `json:"exportedCount" gorm:"not null;default:0"`
}

func (a *AuditExportCursor) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (AuditExportCursor) TableName() string {
	return "audit_export_cursors"
}
