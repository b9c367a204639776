package enum

// Role 表示使用者角色
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a stored role value to a Role. Anything that is not admin is a regular user.
func ParseRole(s string) Role {
	switch s {
	case "admin", "ADMIN":
		return RoleAdmin
	default:
		return RoleUser
	}
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}
