// Package menu holds the static, process-lifetime menu.
package menu

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"table-status-backend/internal/model"
)

//go:embed menu.yaml
var defaultMenu []byte

// Menu is an immutable list of items indexed by id.
type Menu struct {
	items []model.MenuItem
	byID  map[string]model.MenuItem
}

type menuDocument struct {
	Items []model.MenuItem `yaml:"items"`
}

// Default returns the menu embedded in the binary.
func Default() *Menu {
	m, err := Parse(defaultMenu)
	if err != nil {
		panic(fmt.Sprintf("embedded menu is invalid: %v", err))
	}
	return m
}

// Parse decodes a YAML menu document.
func Parse(data []byte) (*Menu, error) {
	var doc menuDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}
	return New(doc.Items)
}

// New validates items and builds a Menu.
func New(items []model.MenuItem) (*Menu, error) {
	m := &Menu{
		items: make([]model.MenuItem, 0, len(items)),
		byID:  make(map[string]model.MenuItem, len(items)),
	}
	for _, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("menu item %q has no id", item.Name)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("menu item %s has a negative price", item.ID)
		}
		if _, dup := m.byID[item.ID]; dup {
			return nil, fmt.Errorf("duplicate menu item %s", item.ID)
		}
		m.items = append(m.items, item)
		m.byID[item.ID] = item
	}
	return m, nil
}

// Find looks an item up by id.
func (m *Menu) Find(id string) (model.MenuItem, bool) {
	item, ok := m.byID[id]
	return item, ok
}

// Items returns the menu in display order.
func (m *Menu) Items() []model.MenuItem {
	out := make([]model.MenuItem, len(m.items))
	copy(out, m.items)
	return out
}
