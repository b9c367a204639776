// Package cart holds the shopping cart state machine and its Redis snapshot
// store.
package cart

import (
	"slices"

	"github.com/shopspring/decimal"

	"goflare.io/storefront/models"
)

// Cart 代表購物車
//
// Lines keep insertion order and there is at most one line per product. A line
// whose quantity drops to zero is removed, so every visible line has a
// quantity of at least one. Cart is not safe for concurrent use.
type Cart struct {
	lines []models.CartLine
}

func New() *Cart {
	return &Cart{}
}

// Restore rebuilds a cart from a snapshot. Lines without a product id or with a
// non-positive quantity are dropped and duplicate products are merged.
func Restore(lines []models.CartLine) *Cart {
	c := New()
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity <= 0 {
			continue
		}
		if i := c.indexOf(l.ProductID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}

// AddToCart inserts the product with quantity 1, or bumps the quantity of the
// existing line. It reports whether a new line was created.
func (c *Cart) AddToCart(product models.Product) bool {
	if i := c.indexOf(product.ID); i >= 0 {
		c.lines[i].Quantity++
		return false
	}

	c.lines = append(c.lines, models.CartLine{
		ProductID:   product.ID,
		Name:        product.Name,
		Description: product.Description,
		UnitPrice:   product.Price,
		Quantity:    1,
	})
	return true
}

func (c *Cart) IncrementQuantity(productID string) {
	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity++
	}
}

// DecrementQuantity removes the line once its quantity reaches zero.
func (c *Cart) DecrementQuantity(productID string) {
	i := c.indexOf(productID)
	if i < 0 {
		return
	}
	c.lines[i].Quantity--
	if c.lines[i].Quantity <= 0 {
		c.lines = slices.Delete(c.lines, i, i+1)
	}
}

func (c *Cart) RemoveFromCart(productID string) {
	if i := c.indexOf(productID); i >= 0 {
		c.lines = slices.Delete(c.lines, i, i+1)
	}
}

func (c *Cart) ClearCart() {
	c.lines = nil
}

// CalculateSubtotal is the exact sum of unit price times quantity.
func (c *Cart) CalculateSubtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []models.CartLine {
	return slices.Clone(c.lines)
}

func (c *Cart) Line(productID string) (models.CartLine, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.lines[i], true
	}
	return models.CartLine{}, false
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) TotalQuantity() int64 {
	var n int64
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) indexOf(productID string) int {
	return slices.IndexFunc(c.lines, func(l models.CartLine) bool {
		return l.ProductID == productID
	})
}
