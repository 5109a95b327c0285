package handler

import (
	"net/http"

	"commandmail/internal/model"

	"github.com/gin-gonic/gin"
)

type DraftHandler struct {
	drafts DraftService
}

func NewDraftHandler(drafts DraftService) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

type draftRequest struct {
	EmailID  string              `json:"emailId"`
	Subject  string              `json:"subject"`
	Body     string              `json:"body"`
	Metadata model.DraftMetadata `json:"metadata"`
}

// List handles GET /api/drafts
func (h *DraftHandler) List(c *gin.Context) {
	drafts, err := h.drafts.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, drafts)
}

// Get handles GET /api/drafts/:id
func (h *DraftHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id", "Draft")
	if err != nil {
		_ = c.Error(err)
		return
	}
	d, err := h.drafts.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Create handles POST /api/drafts
func (h *DraftHandler) Create(c *gin.Context) {
	var req draftRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	emailID, err := optionalID(req.EmailID, "Email")
	if err != nil {
		_ = c.Error(err)
		return
	}

	d, err := h.drafts.Create(c.Request.Context(), model.Draft{
		EmailID:  emailID,
		Subject:  req.Subject,
		Body:     req.Body,
		Metadata: req.Metadata,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Update handles PUT /api/drafts/:id
func (h *DraftHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id", "Draft")
	if err != nil {
		_ = c.Error(err)
		return
	}
	var patch model.DraftPatch
	if err := bindJSON(c, &patch); err != nil {
		_ = c.Error(err)
		return
	}
	d, err := h.drafts.Update(c.Request.Context(), id, patch)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Delete handles DELETE /api/drafts/:id
func (h *DraftHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id", "Draft")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.drafts.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Draft deleted successfully"})
}
