package auth

import "fmt"

// EdgeVerifier is the verify-only counterpart of Codec used by the page gate.
// It computes HMAC-SHA256 with crypto/hmac instead of the jwt package and shares
// all framing and claim checks with Codec, so both accept and reject the same
// tokens.
type EdgeVerifier struct {
	verifier
}

func NewEdgeVerifier(secret string, opts ...Option) (*EdgeVerifier, error) {
	const op = "auth.NewEdgeVerifier"

	if err := checkSecret(secret); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &EdgeVerifier{verifier: newVerifier(newHMACMAC(secret), opts)}, nil
}
