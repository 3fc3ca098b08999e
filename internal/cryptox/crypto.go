// Package cryptox encrypts uploaded PII at rest with AES-256-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"portfolio_service/internal/common"
)

const (
	KeyLength     = 32
	IVLength      = 16
	AuthTagLength = 16
)

// EncryptedBlob is the output of one Encrypt call. All three parts are needed
// to decrypt.
type EncryptedBlob struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
}

// envelope is the inline text form of an EncryptedBlob.
type envelope struct {
	Data    string `json:"data"`
	IV      string `json:"iv"`
	AuthTag string `json:"authTag"`
}

type FileEncryptor struct {
	aead cipher.AEAD
}

// NewFileEncryptor takes the key as 64 hex characters. A missing or malformed
// key is a common.ErrConfiguration.
func NewFileEncryptor(hexKey string) (*FileEncryptor, error) {
	const op = "cryptox.NewFileEncryptor"

	if hexKey == "" {
		return nil, fmt.Errorf("%s: %w: encryption key is not set", op, common.ErrConfiguration)
	}
	if len(hexKey) != 2*KeyLength {
		return nil, fmt.Errorf("%s: %w: encryption key must be %d hex characters", op, common.ErrConfiguration, 2*KeyLength)
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: encryption key is not hex", op, common.ErrConfiguration)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, IVLength)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &FileEncryptor{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random IV.
func (e *FileEncryptor) Encrypt(plaintext []byte) (EncryptedBlob, error) {
	const op = "cryptox.FileEncryptor.Encrypt"

	iv := make([]byte, IVLength)
	if _, err := rand.Read(iv); err != nil {
		return EncryptedBlob{}, fmt.Errorf("%s: %w", op, err)
	}

	sealed := e.aead.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - AuthTagLength

	return EncryptedBlob{
		Ciphertext: sealed[:split:split],
		IV:         iv,
		AuthTag:    sealed[split:],
	}, nil
}

// Decrypt checks the tag before returning anything. Any mismatch, truncation or
// missing part is a common.ErrIntegrity.
func (e *FileEncryptor) Decrypt(blob EncryptedBlob) ([]byte, error) {
	const op = "cryptox.FileEncryptor.Decrypt"

	if len(blob.IV) != IVLength || len(blob.AuthTag) != AuthTagLength {
		return nil, fmt.Errorf("%s: %w", op, common.ErrIntegrity)
	}

	sealed := make([]byte, 0, len(blob.Ciphertext)+AuthTagLength)
	sealed = append(sealed, blob.Ciphertext...)
	sealed = append(sealed, blob.AuthTag...)

	plaintext, err := e.aead.Open(nil, blob.IV, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, common.ErrIntegrity)
	}

	if plaintext == nil {
		plaintext = []byte{}
	}

	return plaintext, nil
}

// EncryptText returns a JSON envelope {data: base64, iv: hex, authTag: hex}
// suitable for storing an encrypted field inline.
func (e *FileEncryptor) EncryptText(text string) (string, error) {
	const op = "cryptox.FileEncryptor.EncryptText"

	blob, err := e.Encrypt([]byte(text))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	out, err := json.Marshal(envelope{
		Data:    base64.StdEncoding.EncodeToString(blob.Ciphertext),
		IV:      hex.EncodeToString(blob.IV),
		AuthTag: hex.EncodeToString(blob.AuthTag),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(out), nil
}

// DecryptText reverses EncryptText. A malformed envelope is a
// common.ErrValidation, a failed tag check a common.ErrIntegrity.
func (e *FileEncryptor) DecryptText(encrypted string) (string, error) {
	const op = "cryptox.FileEncryptor.DecryptText"

	var env envelope
	if err := json.Unmarshal([]byte(encrypted), &env); err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, common.ErrValidation, err)
	}

	blob, err := BlobFromStrings(env.Data, env.IV, env.AuthTag)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	plaintext, err := e.Decrypt(blob)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(plaintext), nil
}

// BlobFromStrings rebuilds a blob from base64 ciphertext and hex IV and tag.
func BlobFromStrings(data, iv, authTag string) (EncryptedBlob, error) {
	ct, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("%w: bad ciphertext encoding", common.ErrValidation)
	}

	ivb, err := hex.DecodeString(iv)
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("%w: bad iv encoding", common.ErrValidation)
	}

	tag, err := hex.DecodeString(authTag)
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("%w: bad auth tag encoding", common.ErrValidation)
	}

	return EncryptedBlob{Ciphertext: ct, IV: ivb, AuthTag: tag}, nil
}
