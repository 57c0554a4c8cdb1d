package handlers

import (
	"strings"

	"github.com/burnbox/backend/internal/models"
	"github.com/burnbox/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminHandler serves the operator-facing listings behind the dashboard.
type AdminHandler struct {
	DB *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{DB: db}
}

func (h *AdminHandler) ListTransfers(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)

	query := h.DB.Model(&models.Transfer{})
	switch strings.ToLower(c.Query("state")) {
	case "consumed":
		query = query.Where("consumed = ?", true)
	case "active":
		query = query.Where("consumed = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting transfers")
	}

	var transfers []models.Transfer
	if err := utils.ApplyPagination(query.Order("created_at DESC"), pagination).
		Find(&transfers).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing transfers")
	}

	return utils.Paginated(c, transfers, pagination.Page, pagination.Limit, total)
}

func (h *AdminHandler) ListAuditEvents(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)

	query := h.DB.Model(&models.AuditEvent{})
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		query = query.Where("token = ?", token)
	}
	if action := strings.TrimSpace(c.Query("action")); action != "" {
		query = query.Where("action = ?", action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting audit events")
	}

	var events []models.AuditEvent
	if err := utils.ApplyPagination(query.Order("created_at DESC"), pagination).
		Find(&events).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing audit events")
	}

	return utils.Paginated(c, events, pagination.Page, pagination.Limit, total)
}
