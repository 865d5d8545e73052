package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Encrypted wraps another KV so values rest as XChaCha20-Poly1305
// ciphertext. Keys stay in the clear: they carry record identifiers, never
// clinical content, so prefix listing still works underneath.
type Encrypted struct {
	inner KV
	aead  cipher.AEAD
}

// NewEncrypted creates an encrypting decorator over inner. key must be
// exactly 32 bytes.
func NewEncrypted(inner KV, key []byte) (*Encrypted, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("storage key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Encrypted{inner: inner, aead: aead}, nil
}

func (s *Encrypted) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.open(key, sealed)
}

func (s *Encrypted) Set(ctx context.Context, key string, value []byte) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	// Layout: nonce || ciphertext. The nonce is random per write, so
	// overwriting a key never reuses one.
	sealed := s.aead.Seal(nonce, nonce, value, nil)
	return s.inner.Set(ctx, key, sealed)
}

func (s *Encrypted) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *Encrypted) List(ctx context.Context, prefix string) ([]Entry, error) {
	sealed, err := s.inner.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(sealed))
	for _, entry := range sealed {
		value, err := s.open(entry.Key, entry.Value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: entry.Key, Value: value})
	}
	return entries, nil
}

func (s *Encrypted) open(key string, sealed []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("decrypt %s: ciphertext shorter than nonce", key)
	}
	value, err := s.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", key, err)
	}
	return value, nil
}
