package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// FieldPrefix marks a column value produced by EncryptField.
const FieldPrefix = "enc:v1:"

var ErrCiphertextTooShort = errors.New("ciphertext too short")

type Service struct {
	key []byte
}

func New(key string) (*Service, error) {
	if key == "" {
		return &Service{key: nil}, nil
	}
	decoded, err := decodeKey(key)
	if err != nil {
		return nil, err
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be 32 bytes after decoding")
	}
	return &Service{key: decoded}, nil
}

func (s *Service) Configured() bool {
	return s != nil && len(s.key) == 32
}

// derive expands the master key into a key bound to one table column.
func (s *Service) derive(table, field string) ([]byte, error) {
	reader := hkdf.New(sha256.New, s.key, nil, []byte("field:"+table+"."+field))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (s *Service) Seal(key, plain, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, aad), nil
}

func (s *Service) Open(key, ciphertext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], aad)
}

// EncryptField encrypts a column value with a key derived for that column.
// Without a configured key the value is returned unchanged.
func (s *Service) EncryptField(table, field, value string) (string, error) {
	if value == "" || !s.Configured() || strings.HasPrefix(value, FieldPrefix) {
		return value, nil
	}
	key, err := s.derive(table, field)
	if err != nil {
		return "", err
	}
	sealed, err := s.Seal(key, []byte(value), []byte(table+"."+field))
	if err != nil {
		return "", err
	}
	return FieldPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *Service) DecryptField(table, field, value string) (string, error) {
	if !strings.HasPrefix(value, FieldPrefix) {
		return value, nil
	}
	if !s.Configured() {
		return "", errors.New("field encryption key not configured")
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, FieldPrefix))
	if err != nil {
		return "", err
	}
	key, err := s.derive(table, field)
	if err != nil {
		return "", err
	}
	plain, err := s.Open(key, raw, []byte(table+"."+field))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func decodeKey(raw string) ([]byte, error) {
	if len(raw) == 64 {
		decoded, err := hex.DecodeString(raw)
		if err == nil {
			return decoded, nil
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded, nil
	}
	return []byte(raw), nil
}
