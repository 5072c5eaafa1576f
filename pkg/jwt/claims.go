package jwt

import "github.com/golang-jwt/jwt/v5"

// Claims is the bearer token payload issued to game clients.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type Role string

const (
	RolePlayer  Role = "player"
	RoleContent Role = "content"
	RoleAdmin   Role = "admin"
)

// CanManageContent reports whether the role may edit seasons and tournaments.
func (r Role) CanManageContent() bool {
	return r == RoleContent || r == RoleAdmin
}
