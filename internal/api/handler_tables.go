package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type menuItemResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	PriceText string  `json:"priceText"`
}

// GetMenu returns the static menu with display prices.
func (h *Handler) GetMenu(c *gin.Context) {
	items := h.engine.Menu().Items()
	out := make([]menuItemResponse, len(items))
	for i, item := range items {
		out[i] = menuItemResponse{
			ID:        item.ID,
			Name:      item.Name,
			Price:     item.Price,
			PriceText: h.format.Money(item.Price),
		}
	}
	c.JSON(http.StatusOK, out)
}

// GetTables returns the mirror of the tables collection.
func (h *Handler) GetTables(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.View().Tables)
}
