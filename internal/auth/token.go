package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"portfolio_service/internal/common"
)

const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Codec signs and verifies HS256 tokens in the full runtime.
type Codec struct {
	verifier
}

// NewCodec fails with common.ErrConfiguration if secret is shorter than
// MinSecretLen characters.
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	const op = "auth.NewCodec"

	if err := checkSecret(secret); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Codec{verifier: newVerifier(newJWTMAC(secret), opts)}, nil
}

// Sign stamps iat and exp onto claims and returns the compact token. ttl is
// truncated to whole seconds and must be at least one second.
func (c *Codec) Sign(claims Claims, ttl time.Duration) (string, error) {
	const op = "auth.Codec.Sign"

	if claims.Subject == "" {
		return "", fmt.Errorf("%s: %w: empty subject", op, common.ErrValidation)
	}
	if ttl < time.Second {
		return "", fmt.Errorf("%s: %w: ttl %s is below one second", op, common.ErrValidation, ttl)
	}

	claims.IssuedAt = c.now().Unix()
	claims.ExpiresAt = claims.IssuedAt + int64(ttl/time.Second)

	h, err := encodeSegment(header{Alg: algHS256, Typ: typJWT})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	p, err := encodeSegment(claims)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	signingInput := h + "." + p
	sig, err := c.mac.Sign(signingInput)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signingInput + "." + segmentEncoding.EncodeToString(sig), nil
}

// CreateAccessToken issues a one hour access token. role may be empty.
func (c *Codec) CreateAccessToken(sub, email, role string) (string, error) {
	return c.Sign(Claims{Subject: sub, Email: email, Role: role, Type: TokenTypeAccess}, AccessTokenTTL)
}

// CreateRefreshToken issues a seven day refresh token.
func (c *Codec) CreateRefreshToken(sub string) (string, error) {
	return c.Sign(Claims{Subject: sub, Type: TokenTypeRefresh}, RefreshTokenTTL)
}

// DecodeUnsafe returns the payload WITHOUT checking the signature or expiry.
// Never use the result for an authorization decision.
func DecodeUnsafe(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}
