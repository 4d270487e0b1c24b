package model

import "time"

// TableStatus is the occupancy state of a table.
type TableStatus string

const (
	StatusAvailable TableStatus = "available"
	StatusOccupied  TableStatus = "occupied"
)

// Table is one document of the shared tables collection.
type Table struct {
	Collection string      `gorm:"primaryKey;size:191" json:"-" bson:"collection"`
	ID         string      `gorm:"primaryKey;size:64" json:"id" bson:"id"`
	Status     TableStatus `gorm:"size:16;not null;default:available" json:"status" bson:"status"`
	Order      Order       `gorm:"column:order_lines;serializer:json" json:"order" bson:"order"`
	UpdatedBy  string      `gorm:"size:128" json:"updatedBy,omitempty" bson:"updated_by,omitempty"`
	CreatedAt  time.Time   `json:"-" bson:"created_at"`
	UpdatedAt  time.Time   `json:"updatedAt" bson:"updated_at"`
}

// TableName keeps the SQL table clear of the TABLES keyword.
func (Table) TableName() string {
	return "dining_tables"
}

// Clone returns a copy whose order can be mutated independently.
func (t Table) Clone() Table {
	t.Order = t.Order.Clone()
	return t
}
