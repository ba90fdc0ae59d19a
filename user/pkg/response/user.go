package response

import (
	"time"

	"github.com/Alturino/storefront/internal/repository"
)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type Login struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func FromRepository(u repository.User) User {
	return User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}
