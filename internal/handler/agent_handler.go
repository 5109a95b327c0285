package handler

import (
	"net/http"

	"commandmail/internal/apperr"
	"commandmail/internal/service/agent"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AgentHandler struct {
	agent AgentService
}

func NewAgentHandler(a AgentService) *AgentHandler {
	return &AgentHandler{agent: a}
}

// Query handles POST /api/agent/query
func (h *AgentHandler) Query(c *gin.Context) {
	var req struct {
		Query   string `json:"query" binding:"required"`
		EmailID string `json:"emailId"`
		Context string `json:"context"`
	}
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	emailID, err := optionalID(req.EmailID, "Email")
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp, err := h.agent.Query(c.Request.Context(), agent.QueryRequest{
		Query:   req.Query,
		EmailID: emailID,
		Context: req.Context,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": resp})
}

// Chat handles POST /api/agent/chat
func (h *AgentHandler) Chat(c *gin.Context) {
	var req struct {
		Messages []messageDTO `json:"messages" binding:"required,min=1,dive"`
		EmailID  string       `json:"emailId"`
	}
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	emailID, err := optionalID(req.EmailID, "Email")
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp, err := h.agent.Chat(c.Request.Context(), agent.ChatRequest{
		Messages: toMessages(req.Messages),
		EmailID:  emailID,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": resp})
}

type emailRef struct {
	EmailID string `json:"emailId"`
}

func (r emailRef) id() (*uuid.UUID, error) {
	id, err := optionalID(r.EmailID, "Email")
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, apperr.Validation("emailId is required")
	}
	return id, nil
}

// GenerateReply handles POST /api/agent/generate-reply
func (h *AgentHandler) GenerateReply(c *gin.Context) {
	var req struct {
		emailRef
		CustomInstructions string `json:"customInstructions"`
	}
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	id, err := req.id()
	if err != nil {
		_ = c.Error(err)
		return
	}

	reply, err := h.agent.GenerateReply(c.Request.Context(), *id, req.CustomInstructions)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// Summarize handles POST /api/agent/summarize
func (h *AgentHandler) Summarize(c *gin.Context) {
	var req emailRef
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	id, err := req.id()
	if err != nil {
		_ = c.Error(err)
		return
	}

	summary, err := h.agent.Summarize(c.Request.Context(), *id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// UrgentSummary handles POST /api/agent/urgent-summary
func (h *AgentHandler) UrgentSummary(c *gin.Context) {
	out, err := h.agent.UrgentSummary(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, out)
}
