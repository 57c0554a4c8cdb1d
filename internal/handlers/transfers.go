package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/burnbox/backend/internal/models"
	"github.com/burnbox/backend/internal/services"
	"github.com/burnbox/backend/internal/validation"
	"github.com/burnbox/backend/pkg/logger"
	"github.com/burnbox/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// goneMessage is returned for both expired and already-consumed links.
// Keeping the two cases indistinguishable denies probers an oracle on why
// a link died.
const goneMessage = "link is no longer available"

type TransfersHandler struct {
	Service   *services.TransferService
	Audit     *services.AuditService
	Policy    validation.UploadPolicy
	PublicURL string
}

func NewTransfersHandler(service *services.TransferService, audit *services.AuditService, policy validation.UploadPolicy, publicURL string) *TransfersHandler {
	return &TransfersHandler{
		Service:   service,
		Audit:     audit,
		Policy:    policy,
		PublicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (h *TransfersHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	filename := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if filename == "" || filename == "." {
		return utils.Error(c, fiber.StatusBadRequest, "invalid filename")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}

	if err := h.Policy.CheckUpload(fileHeader.Size, contentType); err != nil {
		if errors.Is(err, validation.ErrTooLarge) {
			return utils.Error(c, fiber.StatusRequestEntityTooLarge, "file too large")
		}
		var ve *validation.Error
		if errors.As(err, &ve) {
			return utils.Error(c, fiber.StatusBadRequest, ve.Message)
		}
		return utils.Error(c, fiber.StatusBadRequest, "invalid upload")
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	payload, err := io.ReadAll(stream)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reading uploaded file")
	}

	transfer, err := h.Service.Issue(c.Context(), payload, filename, contentType)
	if err != nil {
		logger.Error("upload_failed", err, map[string]interface{}{
			"file_name": filename,
			"file_size": fileHeader.Size,
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing file")
	}

	h.Audit.LogAsync(services.AuditEntry{
		Token:     transfer.Token,
		Action:    models.AuditActionUpload,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
		Details: map[string]interface{}{
			"file_name":  filename,
			"file_size":  transfer.Size,
			"mime_type":  contentType,
			"request_id": getRequestID(c),
		},
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"token":     transfer.Token,
		"link":      fmt.Sprintf("%s/api/download/%s", h.PublicURL, transfer.Token),
		"expiresAt": transfer.ExpiresAt,
		"fileInfo": fiber.Map{
			"originalName": transfer.OriginalName,
			"size":         transfer.Size,
			"type":         transfer.MimeType,
		},
	})
}

func (h *TransfersHandler) Download(c *fiber.Ctx) error {
	token := c.Params("token")
	if err := validation.CheckToken(token); err != nil {
		var ve *validation.Error
		if errors.As(err, &ve) {
			return utils.Error(c, fiber.StatusBadRequest, ve.Message)
		}
		return utils.Error(c, fiber.StatusBadRequest, "invalid token")
	}

	file, err := h.Service.Redeem(c.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransferNotFound):
			return utils.Error(c, fiber.StatusNotFound, "file not found")
		case errors.Is(err, services.ErrTransferExpired),
			errors.Is(err, services.ErrTransferConsumed):
			return utils.Error(c, fiber.StatusGone, goneMessage)
		default:
			// Storage inconsistency or a decrypt failure. Detail stays in
			// the logs; the client only learns the request failed.
			return utils.Error(c, fiber.StatusInternalServerError, "failed retrieving file")
		}
	}

	h.Audit.LogAsync(services.AuditEntry{
		Token:     token,
		Action:    models.AuditActionDownload,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
		Details: map[string]interface{}{
			"file_name":  file.OriginalName,
			"file_size":  len(file.Data),
			"request_id": getRequestID(c),
		},
	})

	c.Set(fiber.HeaderContentType, "application/octet-stream")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.OriginalName))
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(file.Data)
}

func (h *TransfersHandler) Describe(c *fiber.Ctx) error {
	token := c.Params("token")
	if err := validation.CheckToken(token); err != nil {
		var ve *validation.Error
		if errors.As(err, &ve) {
			return utils.Error(c, fiber.StatusBadRequest, ve.Message)
		}
		return utils.Error(c, fiber.StatusBadRequest, "invalid token")
	}

	transfer, err := h.Service.Describe(c.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransferNotFound):
			return utils.Error(c, fiber.StatusNotFound, "file not found")
		case errors.Is(err, services.ErrTransferExpired):
			return utils.Error(c, fiber.StatusGone, goneMessage)
		default:
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading file")
		}
	}

	h.Audit.LogAsync(services.AuditEntry{
		Token:     token,
		Action:    models.AuditActionView,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
		Details: map[string]interface{}{
			"request_id": getRequestID(c),
		},
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"token":        transfer.Token,
		"originalName": transfer.OriginalName,
		"size":         transfer.Size,
		"mimeType":     transfer.MimeType,
		"createdAt":    transfer.CreatedAt,
		"expiresAt":    transfer.ExpiresAt,
		"consumed":     transfer.Consumed,
	})
}
