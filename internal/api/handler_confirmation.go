package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"table-status-backend/internal/confirm"
)

type answerRequest struct {
	Confirm *bool `json:"confirm" binding:"required"`
}

// GetConfirmation returns the open prompt or 204 when there is none.
func (h *Handler) GetConfirmation(c *gin.Context) {
	prompt, open := h.gate.Pending()
	if !open {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, prompt)
}

// AnswerConfirmation resolves the open prompt.
func (h *Handler) AnswerConfirmation(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.gate.Respond(*req.Confirm); err != nil {
		if errors.Is(err, confirm.ErrNoPending) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetNotices returns the active notices, oldest first.
func (h *Handler) GetNotices(c *gin.Context) {
	c.JSON(http.StatusOK, h.notices.Active())
}

// DismissNotice removes a notice before it expires.
func (h *Handler) DismissNotice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notice id"})
		return
	}
	h.notices.Dismiss(id)
	c.Status(http.StatusNoContent)
}
