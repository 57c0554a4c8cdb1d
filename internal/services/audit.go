package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/burnbox/backend/internal/models"
	"github.com/burnbox/backend/internal/storage"
	"github.com/burnbox/backend/pkg/logger"
	"gorm.io/gorm"
)

type AuditEntry struct {
	Token     string
	Action    string
	IPAddress string
	UserAgent string
	Details   map[string]interface{}
}

// AuditService is a best-effort, append-only event recorder. Writes go
// through a bounded queue drained by a background goroutine; a full queue
// drops the event with a warning. Audit failures never surface to the
// caller and never block the upload or download path.
type AuditService struct {
	DB      *gorm.DB
	Storage storage.BlobStore
	queue   chan models.AuditEvent
}

func NewAuditService(db *gorm.DB, blobs storage.BlobStore, queueSize int) *AuditService {
	if queueSize <= 0 {
		queueSize = 1000
	}
	s := &AuditService{
		DB:      db,
		Storage: blobs,
		queue:   make(chan models.AuditEvent, queueSize),
	}
	go s.processQueue()
	return s
}

func (s *AuditService) LogAsync(entry AuditEntry) {
	event := models.AuditEvent{
		Token:     entry.Token,
		Action:    entry.Action,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
		Details:   entry.Details,
		CreatedAt: time.Now().UTC(),
	}

	select {
	case s.queue <- event:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

func (s *AuditService) processQueue() {
	for event := range s.queue {
		if err := s.DB.Create(&event).Error; err != nil {
			logger.Error("audit_event_insert_failed", err, map[string]interface{}{
				"action": event.Action,
			})
		}
	}
}

// StartExporter runs a background goroutine that periodically exports new
// audit rows to the blob store as NDJSON files.
func (s *AuditService) StartExporter(interval time.Duration) {
	if s.Storage == nil {
		logger.Info("audit_exporter_disabled", map[string]interface{}{
			"reason": "no storage client configured",
		})
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			s.export()
		}
	}()

	logger.Info("audit_exporter_started", map[string]interface{}{
		"interval": interval.String(),
	})
}

func (s *AuditService) export() {
	var cursor models.AuditExportCursor
	err := s.DB.First(&cursor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cursor = models.AuditExportCursor{
				LastExportAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			}
			if createErr := s.DB.Create(&cursor).Error; createErr != nil {
				logger.Error("audit_export_cursor_create_failed", createErr, nil)
				return
			}
		} else {
			logger.Error("audit_export_cursor_load_failed", err, nil)
			return
		}
	}

	var events []models.AuditEvent
	if err := s.DB.Where("created_at > ?", cursor.LastExportAt).
		Order("created_at ASC").
		Limit(10000).
		Find(&events).Error; err != nil {
		logger.Error("audit_export_query_failed", err, nil)
		return
	}

	if len(events) == 0 {
		return
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			logger.Error("audit_export_encode_failed", err, map[string]interface{}{
				"event_id": event.ID.String(),
			})
			continue
		}
	}

	now := time.Now().UTC()
	objectName := fmt.Sprintf("audit-events/%s/%s.ndjson",
		now.Format("2006/01/02"),
		now.Format("15-04-05"),
	)

	if err := s.Storage.Put(
		context.Background(),
		objectName,
		&buf,
		int64(buf.Len()),
		"application/x-ndjson",
	); err != nil {
		logger.Error("audit_export_upload_failed", err, map[string]interface{}{
			"object_name": objectName,
			"count":       len(events),
		})
		return
	}

	lastCreatedAt := events[len(events)-1].CreatedAt
	s.DB.Model(&cursor).Updates(map[string]interface{}{
		"last_export_at": lastCreatedAt,
		"exported_count": gorm.Expr("exported_count + ?", len(events)),
	})

	logger.Info("audit_export_success", map[string]interface{}{
		"object_name": objectName,
		"count":       len(events),
	})
}
