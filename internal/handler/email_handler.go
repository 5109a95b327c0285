package handler

import (
	"net/http"
	"strconv"

	"commandmail/internal/apperr"
	"commandmail/internal/model"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	emails EmailService
}

func NewEmailHandler(emails EmailService) *EmailHandler {
	return &EmailHandler{emails: emails}
}

// Load handles POST /api/emails/load
func (h *EmailHandler) Load(c *gin.Context) {
	emails, err := h.emails.Load(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Inbox loaded successfully",
		"count":   len(emails),
		"emails":  emails,
	})
}

// List handles GET /api/emails?category=&processed=
func (h *EmailHandler) List(c *gin.Context) {
	var f model.EmailFilter
	if category := c.Query("category"); category != "" {
		f.Categories = []model.Category{model.Category(category)}
	}
	if raw, ok := c.GetQuery("processed"); ok {
		processed := raw == "true"
		f.Processed = &processed
	}

	emails, err := h.emails.List(c.Request.Context(), f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, emails)
}

// Get handles GET /api/emails/:id
func (h *EmailHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id", "Email")
	if err != nil {
		_ = c.Error(err)
		return
	}
	e, err := h.emails.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Process handles POST /api/emails/process/:id
func (h *EmailHandler) Process(c *gin.Context) {
	id, err := parseID(c, "id", "Email")
	if err != nil {
		_ = c.Error(err)
		return
	}
	e, err := h.emails.Process(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// ProcessAll handles POST /api/emails/process-all
func (h *EmailHandler) ProcessAll(c *gin.Context) {
	out, err := h.emails.ProcessAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ToggleActionItem handles PUT /api/emails/:id/action-items/:itemIndex/toggle
func (h *EmailHandler) ToggleActionItem(c *gin.Context) {
	id, err := parseID(c, "id", "Email")
	if err != nil {
		_ = c.Error(err)
		return
	}
	index, err := strconv.Atoi(c.Param("itemIndex"))
	if err != nil {
		_ = c.Error(apperr.Validation("Invalid action item index"))
		return
	}
	e, err := h.emails.ToggleActionItem(c.Request.Context(), id, index)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, e)
}
