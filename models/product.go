package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Product 代表商品目錄中的商品
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
}

// ProductUpdate carries the fields of a partial product update. Nil fields are left untouched.
type ProductUpdate struct {
	Name        *string
	Category    *string
	Price       *decimal.Decimal
	Description *string
	Image       *string
}

func (p *Product) Validate() error {
	if p.Name == "" {
		return Invalid("product name is required")
	}
	if p.Price.IsNegative() {
		return Invalid("product price must not be negative")
	}
	return nil
}

func (p *Product) ToDocument() map[string]any {
	return map[string]any{
		"name":        p.Name,
		"category":    p.Category,
		"price":       p.Price.String(),
		"description": p.Description,
		"image":       p.Image,
	}
}

func (p *Product) ConvertDocument(id string, data map[string]any) (*Product, error) {
	price, err := decimalField(data, "price")
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}

	p.ID = id
	p.Name = stringField(data, "name")
	p.Category = stringField(data, "category")
	p.Price = price
	p.Description = stringField(data, "description")
	p.Image = stringField(data, "image")

	return p, nil
}

func (u ProductUpdate) Fields() map[string]any {
	fields := make(map[string]any)
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Category != nil {
		fields["category"] = *u.Category
	}
	if u.Price != nil {
		fields["price"] = u.Price.String()
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Image != nil {
		fields["image"] = *u.Image
	}
	return fields
}

// Apply merges the update into p.
func (u ProductUpdate) Apply(p *Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Image != nil {
		p.Image = *u.Image
	}
}

func (u ProductUpdate) Validate() error {
	if u.Name == nil && u.Category == nil && u.Price == nil && u.Description == nil && u.Image == nil {
		return Invalid("product update has no fields")
	}
	if u.Name != nil && *u.Name == "" {
		return Invalid("product name is required")
	}
	if u.Price != nil && u.Price.IsNegative() {
		return Invalid("product price must not be negative")
	}
	return nil
}
