package user

import (
	"time"

	"todo_api/internal/auth"
)

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // Never expose password in JSON
	CreatedAt time.Time `json:"-"`
}

type RegisterInput struct {
	Username string `json:"username" form:"username" binding:"required,max=150"`
	Email    string `json:"email" form:"email" binding:"omitempty,email,max=254"`
	Password string `json:"password" form:"password" binding:"required,max=72"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	User *User `json:"user,omitempty"`
	*auth.TokenPair
}
