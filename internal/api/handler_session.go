package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"table-status-backend/internal/confirm"
	"table-status-backend/internal/engine"
	"table-status-backend/internal/order"
	"table-status-backend/internal/store"
)

type selectTableRequest struct {
	TableID string `json:"table_id" binding:"required"`
}

type addItemRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

// GetSession returns the selection, its order buffer and the mirror.
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.View())
}

// SelectTable handles POST /api/session/select.
func (h *Handler) SelectTable(c *gin.Context) {
	var req selectTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.engine.SelectTable(req.TableID)
	c.JSON(http.StatusOK, h.engine.View())
}

// AddItem handles POST /api/session/items.
func (h *Handler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.engine.AddItem(req.ItemID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.engine.View())
}

// RemoveItem handles DELETE /api/session/items/{item_id}?amount=N|all.
// Without an amount one unit is removed.
func (h *Handler) RemoveItem(c *gin.Context) {
	amount := order.Units(1)
	if raw := c.Query("amount"); raw != "" {
		parsed, err := order.ParseAmount(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		amount = parsed
	}
	if err := h.engine.RemoveItem(c.Param("item_id"), amount); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.engine.View())
}

// SaveOrder handles POST /api/session/save.
func (h *Handler) SaveOrder(c *gin.Context) {
	if err := h.engine.SaveOrder(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.engine.View())
}

// ClearOrder handles POST /api/session/clear. The clear waits for the
// operator to confirm, so the request is answered with 202 once the
// question is open.
func (h *Handler) ClearOrder(c *gin.Context) {
	h.runConfirmed(c, func(ctx context.Context) (any, error) {
		cleared, err := h.engine.RequestClear(ctx)
		return gin.H{"cleared": cleared}, err
	})
}

// Checkout handles POST /api/session/checkout.
func (h *Handler) Checkout(c *gin.Context) {
	h.runConfirmed(c, func(ctx context.Context) (any, error) {
		return h.engine.Checkout(ctx)
	})
}

type opResult struct {
	body any
	err  error
}

// runConfirmed starts op in the background and answers as soon as op either
// finishes or opens a confirmation prompt.
func (h *Handler) runConfirmed(c *gin.Context, op func(ctx context.Context) (any, error)) {
	signals, unsubscribe := h.engine.Signals().Subscribe(16)
	defer unsubscribe()

	done := make(chan opResult, 1)
	go func() {
		body, err := op(h.bg)
		done <- opResult{body: body, err: err}
	}()

	for {
		select {
		case res := <-done:
			if res.err != nil {
				h.fail(c, res.err)
				return
			}
			c.JSON(http.StatusOK, res.body)
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if sig.Kind != engine.SignalConfirmation {
				continue
			}
			if prompt, open := h.gate.Pending(); open {
				c.JSON(http.StatusAccepted, prompt)
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNoSelection):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrEmptyOrder), errors.Is(err, confirm.ErrPending):
		status = http.StatusConflict
	case errors.Is(err, store.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error(), "notices": h.notices.Active()})
}
