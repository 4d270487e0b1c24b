package model

// MenuItem is a static menu entry. Menu items are never persisted remotely.
type MenuItem struct {
	ID    string  `json:"id" yaml:"id"`
	Name  string  `json:"name" yaml:"name"`
	Price float64 `json:"price" yaml:"price"`
}
