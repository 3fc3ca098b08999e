package auth

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/golang-jwt/jwt/v5"
)

// MAC computes and checks the HS256 signature over a token's signing input
// (base64url(header) + "." + base64url(payload)). Everything above this
// interface, framing and claim checks, is shared by Codec and EdgeVerifier.
type MAC interface {
	Sign(signingInput string) ([]byte, error)
	Verify(signingInput string, sig []byte) bool
}

// jwtMAC delegates to golang-jwt's HMAC signing method.
type jwtMAC struct {
	key []byte
}

func newJWTMAC(secret string) jwtMAC {
	return jwtMAC{key: []byte(secret)}
}

func (m jwtMAC) Sign(signingInput string) ([]byte, error) {
	return jwt.SigningMethodHS256.Sign(signingInput, m.key)
}

func (m jwtMAC) Verify(signingInput string, sig []byte) bool {
	return jwt.SigningMethodHS256.Verify(signingInput, sig, m.key) == nil
}

// hmacMAC uses crypto/hmac directly and has no dependency on the jwt package.
type hmacMAC struct {
	key []byte
}

func newHMACMAC(secret string) hmacMAC {
	return hmacMAC{key: []byte(secret)}
}

func (m hmacMAC) Sign(signingInput string) ([]byte, error) {
	h := hmac.New(sha256.New, m.key)
	h.Write([]byte(signingInput))
	return h.Sum(nil), nil
}

func (m hmacMAC) Verify(signingInput string, sig []byte) bool {
	expected, _ := m.Sign(signingInput)
	return hmac.Equal(expected, sig)
}
