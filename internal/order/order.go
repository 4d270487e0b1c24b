// Package order holds the pure order-buffer helpers: add, remove, totals and
// status derivation.
package order

import (
	"fmt"
	"strconv"
	"strings"

	"table-status-backend/internal/model"
)

// Amount is the quantity to remove from a line: a number of units or All.
type Amount struct {
	units int
	all   bool
}

// All removes the whole line regardless of its quantity.
var All = Amount{all: true}

// Units removes n units from a line.
func Units(n int) Amount {
	return Amount{units: n}
}

// IsAll reports whether the amount is the All sentinel.
func (a Amount) IsAll() bool {
	return a.all
}

func (a Amount) String() string {
	if a.all {
		return "all"
	}
	return strconv.Itoa(a.units)
}

// ParseAmount accepts "all" or a positive integer.
func ParseAmount(raw string) (Amount, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "all") {
		return All, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return Amount{}, fmt.Errorf("invalid amount %q: want a positive integer or \"all\"", raw)
	}
	return Units(n), nil
}

// AddItem returns o with one more unit of item. An existing line is
// incremented; otherwise a line is appended with the item's name and price
// as they are now.
func AddItem(o model.Order, item model.MenuItem) model.Order {
	out := o.Clone()
	for i := range out {
		if out[i].ID == item.ID {
			out[i].Quantity++
			return out
		}
	}
	return append(out, model.OrderLine{
		ID:       item.ID,
		Name:     item.Name,
		Price:    item.Price,
		Quantity: 1,
	})
}

// RemoveItem returns o with amount taken off the line for itemID. The line is
// dropped when amount is All or the quantity would reach zero. Unknown items
// and non-positive unit counts leave the order unchanged.
func RemoveItem(o model.Order, itemID string, amount Amount) model.Order {
	out := o.Clone()
	if !amount.all && amount.units < 1 {
		return out
	}
	for i := range out {
		if out[i].ID != itemID {
			continue
		}
		if amount.all || out[i].Quantity <= amount.units {
			return append(out[:i], out[i+1:]...)
		}
		out[i].Quantity -= amount.units
		return out
	}
	return out
}

// Total is the sum of quantity times unit price over all lines.
func Total(o model.Order) float64 {
	var total float64
	for _, line := range o {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

// StatusFor derives the table status from its order.
func StatusFor(o model.Order) model.TableStatus {
	if o.IsEmpty() {
		return model.StatusAvailable
	}
	return model.StatusOccupied
}
