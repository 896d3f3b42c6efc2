package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims identify a dialer operator within an org. OperatorID owns sessions,
// call events and pause actions; OrgID scopes the contact pool.
type Claims struct {
	jwt.RegisteredClaims

	OperatorID string    `json:"operator_id"`
	OrgID      string    `json:"org_id"`
	Role       string    `json:"role"`
	TokenType  TokenType `json:"token_type"`
}
