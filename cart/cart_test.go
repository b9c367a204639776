package cart

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goflare.io/storefront/models"
)

func product(id, price string) models.Product {
	return models.Product{
		ID:          id,
		Name:        "Product " + id,
		Description: "about " + id,
		Price:       decimal.RequireFromString(price),
	}
}

func TestCart_SubtotalScenario(t *testing.T) {
	c := New()
	p1 := product("P1", "10.00")
	p2 := product("P2", "5.50")

	assert.True(t, c.AddToCart(p1))
	assert.True(t, c.AddToCart(p2))
	c.IncrementQuantity(p1.ID)

	assert.True(t, decimal.RequireFromString("25.50").Equal(c.CalculateSubtotal()), c.CalculateSubtotal().String())
	assert.Equal(t, int64(3), c.TotalQuantity())
}

func TestCart_AddSameProductTwice(t *testing.T) {
	c := New()
	p := product("P1", "3.00")

	assert.True(t, c.AddToCart(p))
	assert.False(t, c.AddToCart(p))

	require.Equal(t, 1, c.Len())
	line, ok := c.Line("P1")
	require.True(t, ok)
	assert.Equal(t, int64(2), line.Quantity)
	assert.Equal(t, "Product P1", line.Name)
	assert.Equal(t, "about P1", line.Description)
}

func TestCart_DecrementToZeroRemovesLine(t *testing.T) {
	c := New()
	c.AddToCart(product("P1", "7.25"))

	c.DecrementQuantity("P1")

	assert.True(t, c.IsEmpty())
	assert.True(t, c.CalculateSubtotal().IsZero())
	_, ok := c.Line("P1")
	assert.False(t, ok)
}

func TestCart_NoOpsOnMissingProduct(t *testing.T) {
	c := New()
	c.AddToCart(product("P1", "1.00"))
	before := c.Lines()

	c.RemoveFromCart("nope")
	c.IncrementQuantity("nope")
	c.DecrementQuantity("nope")

	assert.Equal(t, before, c.Lines())
}

func TestCart_RemoveAndClear(t *testing.T) {
	c := New()
	c.AddToCart(product("P1", "1.00"))
	c.AddToCart(product("P2", "2.00"))
	c.AddToCart(product("P3", "3.00"))

	c.RemoveFromCart("P2")
	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "P1", lines[0].ProductID)
	assert.Equal(t, "P3", lines[1].ProductID)

	c.ClearCart()
	assert.Zero(t, c.Len())
	assert.True(t, c.CalculateSubtotal().IsZero())
}

func TestCart_LinesIsACopy(t *testing.T) {
	c := New()
	c.AddToCart(product("P1", "1.00"))

	lines := c.Lines()
	lines[0].Quantity = 99

	line, _ := c.Line("P1")
	assert.Equal(t, int64(1), line.Quantity)
}

func TestCart_SubtotalIsExact(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 50; round++ {
		c := New()
		want := decimal.Zero
		quantities := make(map[string]int64)
		prices := make(map[string]decimal.Decimal)

		n := 1 + r.IntN(20)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("P%d", i)
			price := decimal.New(r.Int64N(100000), -2)
			prices[id] = price
			c.AddToCart(models.Product{ID: id, Price: price})
			quantities[id] = 1

			for j := r.IntN(4); j > 0; j-- {
				c.IncrementQuantity(id)
				quantities[id]++
			}
		}

		for id, q := range quantities {
			want = want.Add(prices[id].Mul(decimal.NewFromInt(q)))
		}
		assert.True(t, want.Equal(c.CalculateSubtotal()), "round %d: want %s got %s", round, want, c.CalculateSubtotal())
	}
}

func TestRestore(t *testing.T) {
	c := Restore([]models.CartLine{
		{ProductID: "P1", UnitPrice: decimal.NewFromInt(2), Quantity: 1},
		{ProductID: "P2", UnitPrice: decimal.NewFromInt(3), Quantity: 0},
		{ProductID: "", UnitPrice: decimal.NewFromInt(4), Quantity: 1},
		{ProductID: "P1", UnitPrice: decimal.NewFromInt(2), Quantity: 2},
	})

	require.Equal(t, 1, c.Len())
	line, _ := c.Line("P1")
	assert.Equal(t, int64(3), line.Quantity)
}
