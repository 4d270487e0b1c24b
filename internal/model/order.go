package model

// OrderLine is a menu item captured at add-time together with its quantity.
type OrderLine struct {
	ID       string  `json:"id" bson:"id"`
	Name     string  `json:"name" bson:"name"`
	Price    float64 `json:"price" bson:"price"`
	Quantity int     `json:"quantity" bson:"quantity"`
}

// Order is the ordered sequence of lines of a table.
type Order []OrderLine

// Clone returns a deep copy; a nil order clones to an empty one.
func (o Order) Clone() Order {
	out := make(Order, len(o))
	copy(out, o)
	return out
}

// IsEmpty reports whether the order has no lines.
func (o Order) IsEmpty() bool {
	return len(o) == 0
}
