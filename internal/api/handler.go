package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"table-status-backend/internal/confirm"
	"table-status-backend/internal/engine"
	"table-status-backend/internal/notice"
	"table-status-backend/internal/order"
)

// Deps are the collaborators the HTTP handlers drive.
type Deps struct {
	Engine    *engine.Controller
	Gate      *confirm.Gate
	Notices   *notice.Board
	Formatter *order.Formatter
	// DB stores push subscriptions; nil disables the subscription routes.
	DB      *gorm.DB
	Webpush *webpush.Options
	// Background bounds operations that outlive their request, such as a
	// checkout waiting for confirmation.
	Background context.Context
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	engine  *engine.Controller
	gate    *confirm.Gate
	notices *notice.Board
	format  *order.Formatter
	db      *gorm.DB
	webpush *webpush.Options
	bg      context.Context
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.Background == nil {
		d.Background = context.Background()
	}
	if d.Formatter == nil {
		d.Formatter = order.NewFormatter("")
	}
	return &Handler{
		engine:  d.Engine,
		gate:    d.Gate,
		notices: d.Notices,
		format:  d.Formatter,
		db:      d.DB,
		webpush: d.Webpush,
		bg:      d.Background,
	}
}
