package model

import "github.com/golang-jwt/jwt"

// UserClaims is the JWT payload accepted by the API. Issuer carries the user id.
type UserClaims struct {
	jwt.StandardClaims
	UserName string `json:"user_name,omitempty"`
}

// UserID prefers the subject and falls back to the issuer.
func (c UserClaims) UserID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Issuer
}
