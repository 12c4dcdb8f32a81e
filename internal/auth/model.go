package auth

import (
	"slices"
	"strings"
	"time"
)

const (
	TokenPrefix       = "Bearer "
	JWTTokenHeader    = "Jwt-Token"
	AuthoritiesClaim  = "authorities"
	OptionsHTTPMethod = "OPTIONS"
)

// Authority labels granted by the built-in roles.
const (
	AuthorityUserRead   = "user:read"
	AuthorityUserCreate = "user:create"
	AuthorityUserUpdate = "user:update"
	AuthorityUserDelete = "user:delete"
)

var SuperAdminAuthorities = []string{
	AuthorityUserRead,
	AuthorityUserCreate,
	AuthorityUserUpdate,
	AuthorityUserDelete,
}

// NormalizeUsername is applied to every username entering the core so
// lookups and attempt counters are case insensitive.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(strings.ToLower(username))
}

// Principal is the identity attached to an authenticated request.
type Principal struct {
	Username    string   `json:"username"`
	Authorities []string `json:"authorities"`
}

func (p Principal) HasAuthority(authority string) bool {
	return slices.Contains(p.Authorities, authority)
}

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	Authorities  []string
	Active       bool
	Locked       bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) Principal() Principal {
	authorities := make([]string, len(u.Authorities))
	copy(authorities, u.Authorities)
	return Principal{Username: u.Username, Authorities: authorities}
}

// BadCredentialsEvent describes a rejected login attempt. Principal is set
// when the identity had already been resolved before the rejection.
type BadCredentialsEvent struct {
	Username  string
	Principal *Principal
}
