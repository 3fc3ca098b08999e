package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio_service/internal/common"
)

const (
	algHS256     = "HS256"
	typJWT       = "JWT"
	MinSecretLen = 32
)

// ErrInvalidToken covers every verification failure: bad structure, bad
// signature, wrong type and expiry alike.
var ErrInvalidToken = errors.New("invalid token")

// Strict rejects non-zero trailing bits, so one signature has one encoding.
var segmentEncoding = base64.RawURLEncoding.Strict()

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

type Option func(*verifier)

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *verifier) {
		v.now = now
	}
}

// verifier holds the framing and claim checks shared by every backend.
type verifier struct {
	mac MAC
	now func() time.Time
}

func newVerifier(mac MAC, opts []Option) verifier {
	v := verifier{mac: mac, now: time.Now}
	for _, opt := range opts {
		opt(&v)
	}
	return v
}

func checkSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: JWT secret is not set", common.ErrConfiguration)
	}
	if len(secret) < MinSecretLen {
		return fmt.Errorf("%w: JWT secret must be at least %d characters long", common.ErrConfiguration, MinSecretLen)
	}
	return nil
}

// Verify checks structure, signature and expiry and returns the payload.
// The payload is not decoded until the signature has been checked.
func (v verifier) Verify(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	sig, err := segmentEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, ErrInvalidToken
	}

	if !v.mac.Verify(parts[0]+"."+parts[1], sig) {
		return nil, ErrInvalidToken
	}

	var h header
	if err := decodeSegment(parts[0], &h); err != nil || h.Alg != algHS256 {
		return nil, ErrInvalidToken
	}

	var claims Claims
	if err := decodeSegment(parts[1], &claims); err != nil {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" || claims.ExpiresAt == 0 {
		return nil, ErrInvalidToken
	}

	if v.now().Unix() >= claims.ExpiresAt {
		return nil, ErrInvalidToken
	}

	return &claims, nil
}

// AccessClaims verifies token and requires it to be an access token.
func (v verifier) AccessClaims(token string) (*Claims, error) {
	return v.typed(token, TokenTypeAccess)
}

// VerifyAccessToken returns the subject of a valid access token.
func (v verifier) VerifyAccessToken(token string) (string, error) {
	claims, err := v.typed(token, TokenTypeAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyRefreshToken returns the subject of a valid refresh token.
func (v verifier) VerifyRefreshToken(token string) (string, error) {
	claims, err := v.typed(token, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (v verifier) typed(token string, typ TokenType) (*Claims, error) {
	claims, err := v.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func decodeSegment(seg string, v any) error {
	raw, err := segmentEncoding.DecodeString(seg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func encodeSegment(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return segmentEncoding.EncodeToString(raw), nil
}
