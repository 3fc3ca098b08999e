package auth

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is a token payload. Extra carries any claim that is not one of the
// named fields and is serialized next to them at the top level.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	Type      TokenType
	IssuedAt  int64
	ExpiresAt int64
	Extra     map[string]any
}

var _ jwt.Claims = Claims{}

type namedClaims struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	Type      TokenType `json:"type,omitempty"`
	IssuedAt  int64     `json:"iat"`
	ExpiresAt int64     `json:"exp"`
}

var reservedClaims = [...]string{"sub", "email", "role", "type", "iat", "exp"}

func (c Claims) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+len(reservedClaims))
	for k, v := range c.Extra {
		out[k] = v
	}
	for _, k := range reservedClaims {
		delete(out, k)
	}

	out["sub"] = c.Subject
	if c.Email != "" {
		out["email"] = c.Email
	}
	if c.Role != "" {
		out["role"] = c.Role
	}
	if c.Type != "" {
		out["type"] = c.Type
	}
	out["iat"] = c.IssuedAt
	out["exp"] = c.ExpiresAt

	return json.Marshal(out)
}

func (c *Claims) UnmarshalJSON(data []byte) error {
	var named namedClaims
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}

	var rest map[string]any
	if err := json.Unmarshal(data, &rest); err != nil {
		return err
	}
	for _, k := range reservedClaims {
		delete(rest, k)
	}

	*c = Claims{
		Subject:   named.Subject,
		Email:     named.Email,
		Role:      named.Role,
		Type:      named.Type,
		IssuedAt:  named.IssuedAt,
		ExpiresAt: named.ExpiresAt,
	}
	if len(rest) > 0 {
		c.Extra = rest
	}

	return nil
}

// jwt.Claims, used by the unverified parser.

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return numericDate(c.ExpiresAt), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return numericDate(c.IssuedAt), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

func (c Claims) GetIssuer() (string, error) { return "", nil }

func (c Claims) GetSubject() (string, error) { return c.Subject, nil }

func (c Claims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }

func numericDate(sec int64) *jwt.NumericDate {
	if sec == 0 {
		return nil
	}
	return jwt.NewNumericDate(time.Unix(sec, 0))
}
