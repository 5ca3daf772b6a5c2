// Package userdir implements the fixed user directory. Users are
// resolved once at startup, either from the built-in demo set or from a
// YAML file, and are immutable afterwards.
package userdir

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/models"
)

// Directory is an immutable username -> user index.
type Directory struct {
	byUsername map[string]models.User
}

type seedUser struct {
	ID       string
	Username string
	Password string
	Role     models.Role
	Name     string
}

// builtinUsers seed the directory when no users file is configured.
// Plaintext passwords here are hashed at load; the directory never
// stores or compares plaintext.
var builtinUsers = []seedUser{
	{ID: "u-admin", Username: "admin", Password: "admin123", Role: models.RoleAdmin, Name: "Administrator"},
	{ID: "u-demo", Username: "demo", Password: "demo123", Role: models.RoleDemo, Name: "Demo User"},
	{ID: "u-alex", Username: "alex", Password: "alex123", Role: models.RoleUser, Name: "Alex"},
}

type usersFile struct {
	Users []struct {
		ID           string      `yaml:"id"`
		Username     string      `yaml:"username"`
		Password     string      `yaml:"password"`
		PasswordHash string      `yaml:"password_hash"`
		Role         models.Role `yaml:"role"`
		Name         string      `yaml:"name"`
	} `yaml:"users"`
}

// Load builds the directory. When path is empty the built-in demo users
// are used; otherwise the YAML file at path replaces them entirely.
func Load(path string) (*Directory, error) {
	if path == "" {
		return fromSeed(builtinUsers)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("userdir: read %s: %w", path, err)
	}
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return nil, fmt.Errorf("userdir: parse %s: %w", path, err)
	}

	byUsername := make(map[string]models.User, len(uf.Users))
	for i, u := range uf.Users {
		if u.Username == "" {
			return nil, fmt.Errorf("userdir: user %d has no username", i)
		}
		hash := u.PasswordHash
		if hash == "" {
			if u.Password == "" {
				return nil, fmt.Errorf("userdir: user %q has no password or password_hash", u.Username)
			}
			h, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("userdir: hash password for %q: %w", u.Username, err)
			}
			hash = string(h)
		}
		id := u.ID
		if id == "" {
			id = "u-" + u.Username
		}
		role := u.Role
		if role == "" {
			role = models.RoleUser
		}
		name := u.Name
		if name == "" {
			name = u.Username
		}
		if _, dup := byUsername[u.Username]; dup {
			return nil, fmt.Errorf("userdir: duplicate username %q", u.Username)
		}
		byUsername[u.Username] = models.User{
			ID:           id,
			Username:     u.Username,
			PasswordHash: hash,
			Role:         role,
			Name:         name,
		}
	}
	if len(byUsername) == 0 {
		return nil, fmt.Errorf("userdir: %s defines no users", path)
	}
	return &Directory{byUsername: byUsername}, nil
}

func fromSeed(seed []seedUser) (*Directory, error) {
	byUsername := make(map[string]models.User, len(seed))
	for _, s := range seed {
		h, err := bcrypt.GenerateFromPassword([]byte(s.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("userdir: hash builtin password: %w", err)
		}
		byUsername[s.Username] = models.User{
			ID:           s.ID,
			Username:     s.Username,
			PasswordHash: string(h),
			Role:         s.Role,
			Name:         s.Name,
		}
	}
	return &Directory{byUsername: byUsername}, nil
}

// Lookup returns the user record for username.
func (d *Directory) Lookup(username string) (models.User, error) {
	u, ok := d.byUsername[username]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return u, nil
}

// Authenticate verifies username/password. Unknown users and wrong
// passwords return the same error so callers cannot probe for accounts.
func (d *Directory) Authenticate(username, password string) (models.User, error) {
	u, ok := d.byUsername[username]
	if !ok {
		return models.User{}, apperr.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, apperr.ErrInvalidCredentials
	}
	return u, nil
}

// Len reports how many users the directory holds.
func (d *Directory) Len() int { return len(d.byUsername) }
