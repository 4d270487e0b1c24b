package engine

import (
	"table-status-backend/internal/model"
	"table-status-backend/internal/order"
	"table-status-backend/internal/parse"
)

// TableView is one table as the presentation layer shows it.
type TableView struct {
	ID        string            `json:"id"`
	Label     string            `json:"label"`
	Status    model.TableStatus `json:"status"`
	Order     model.Order       `json:"order"`
	Total     float64           `json:"total"`
	TotalText string            `json:"totalText"`
	Selected  bool              `json:"selected"`
}

// View is a consistent copy of the controller state.
type View struct {
	Tables      []TableView `json:"tables"`
	Loaded      bool        `json:"loaded"`
	Selected    string      `json:"selected,omitempty"`
	Order       model.Order `json:"order"`
	Total       float64     `json:"total"`
	TotalText   string      `json:"totalText"`
	Stalled     bool        `json:"stalled"`
	StreamError string      `json:"streamError,omitempty"`
}

// View returns the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Tables:   make([]TableView, 0, len(c.mirror)),
		Loaded:   c.loaded,
		Selected: c.selected,
		Order:    c.buffer.Clone(),
		Stalled:  c.streamErr != nil,
	}
	for _, t := range c.mirror {
		total := order.Total(t.Order)
		v.Tables = append(v.Tables, TableView{
			ID:        t.ID,
			Label:     parse.Label(t.ID),
			Status:    t.Status,
			Order:     t.Order.Clone(),
			Total:     total,
			TotalText: c.format.Money(total),
			Selected:  t.ID == c.selected,
		})
	}
	v.Total = order.Total(v.Order)
	v.TotalText = c.format.Money(v.Total)
	if c.streamErr != nil {
		v.StreamError = c.streamErr.Error()
	}
	return v
}

// Tables returns a copy of the mirror.
func (c *Controller) Tables() []model.Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Table, len(c.mirror))
	for i, t := range c.mirror {
		out[i] = t.Clone()
	}
	return out
}
