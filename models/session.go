package models

import "goflare.io/storefront/models/enum"

// Session is the normalized record of the signed-in user. It is what gets persisted to local storage.
type Session struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        enum.Role `json:"role"`
	IsAdmin     bool      `json:"is_admin"`
}

func NewSession(uid, email, displayName string, role enum.Role) *Session {
	return &Session{
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		IsAdmin:     role.IsAdmin(),
	}
}

// Profile 代表 users 集合中的使用者資料
type Profile struct {
	UID     string    `json:"uid"`
	Name    string    `json:"name"`
	Surname string    `json:"surname"`
	Age     int64     `json:"age"`
	Email   string    `json:"email"`
	Role    enum.Role `json:"role"`
}

func (p *Profile) ToDocument() map[string]any {
	return map[string]any{
		"name":    p.Name,
		"surname": p.Surname,
		"age":     p.Age,
		"email":   p.Email,
		"role":    string(p.Role),
	}
}

func (p *Profile) ConvertDocument(uid string, data map[string]any) *Profile {
	p.UID = uid
	p.Name = stringField(data, "name")
	p.Surname = stringField(data, "surname")
	p.Age = int64Field(data, "age")
	p.Email = stringField(data, "email")
	p.Role = enum.ParseRole(stringField(data, "role"))
	return p
}
