package models

import "time"

// Comment 代表商品留言
type Comment struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

func (c *Comment) ToDocument() map[string]any {
	return map[string]any{
		"productId":  c.ProductID,
		"authorId":   c.AuthorID,
		"authorName": c.AuthorName,
		"content":    c.Content,
		"createdAt":  c.CreatedAt.UnixMilli(),
	}
}

func (c *Comment) ConvertDocument(id string, data map[string]any) *Comment {
	c.ID = id
	c.ProductID = stringField(data, "productId")
	c.AuthorID = stringField(data, "authorId")
	c.AuthorName = stringField(data, "authorName")
	c.Content = stringField(data, "content")
	c.CreatedAt = time.UnixMilli(int64Field(data, "createdAt")).UTC()
	return c
}
