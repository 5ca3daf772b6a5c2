package models

// Role controls what a user may do. Munin has no admin surface yet, so
// roles are carried through sessions for the client to render.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleDemo  Role = "demo"
)

// User is a record in the fixed user directory.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	Name         string `json:"name"`
}
