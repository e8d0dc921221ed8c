package user

import (
	"net/mail"
	"strings"
	"time"
)

// Roles
const (
	// Admin
	RoleAdmin = "admin:"

	// Staff (course teams)
	RoleStaff = "staff:"

	// Student
	RoleStudent = "student:"
)

var AllRoles = []string{RoleAdmin, RoleStaff, RoleStudent}

// User is a learner or staff account replicated from the identity provider.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsStaff() bool {
	return u.IsAdmin() || u.RoleStartsWith(RoleStaff)
}

// Address is the mail recipient of the user.
func (u *User) Address() mail.Address {
	name := u.Name
	if name == "" {
		name = u.Username
	}
	return mail.Address{Name: name, Address: u.Email}
}

// GetFilter selects a single User. The first non-empty field wins.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}
