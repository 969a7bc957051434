package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access token payload minted by the identity service.
type JWTClaims struct {
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
	Username string   `json:"username"`
	jwt.RegisteredClaims
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	Email    string
	Role     UserRole
	Username string
}

// Actor extracts the acting identity from the claims.
func (c *JWTClaims) Actor() Actor {
	return Actor{Email: c.Email, Role: c.Role, Username: c.Username}
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
