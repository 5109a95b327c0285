package handler

import (
	"net/http"

	"commandmail/internal/model"

	"github.com/gin-gonic/gin"
)

type PromptHandler struct {
	prompts PromptService
}

func NewPromptHandler(prompts PromptService) *PromptHandler {
	return &PromptHandler{prompts: prompts}
}

// List handles GET /api/prompts
func (h *PromptHandler) List(c *gin.Context) {
	prompts, err := h.prompts.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, prompts)
}

// Save handles POST /api/prompts (upsert by name)
func (h *PromptHandler) Save(c *gin.Context) {
	var req struct {
		Name    model.PromptName `json:"name"`
		Content string           `json:"content"`
	}
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	p, err := h.prompts.Save(c.Request.Context(), req.Name, req.Content)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Update handles PUT /api/prompts/:id
func (h *PromptHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id", "Prompt")
	if err != nil {
		_ = c.Error(err)
		return
	}
	var patch model.PromptPatch
	if err := bindJSON(c, &patch); err != nil {
		_ = c.Error(err)
		return
	}
	p, err := h.prompts.Update(c.Request.Context(), id, patch)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /api/prompts/:id
func (h *PromptHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id", "Prompt")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.prompts.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prompt deleted"})
}

// Initialize handles POST /api/prompts/initialize
func (h *PromptHandler) Initialize(c *gin.Context) {
	prompts, err := h.prompts.Initialize(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Default prompts initialized",
		"prompts": prompts,
	})
}
