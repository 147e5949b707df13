package models

import "github.com/uptrace/bun"

// Roles stored in User.Role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an API user with a hashed password.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	UserID       int64  `bun:"user_id,pk,autoincrement" json:"id"`
	Name         string `bun:"name,notnull" json:"name"`
	Email        string `bun:"email,notnull,unique" json:"email"`
	Role         string `bun:"role,notnull,default:'user'" json:"role"`
	PasswordHash string `bun:"password_hash,notnull" json:"-"`
}
