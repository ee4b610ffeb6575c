package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/ports"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// sealedPrefix marks snapshot data written by the encryption middleware.
const sealedPrefix = "enc:v1:"

// ErrNotEncrypted is returned when an encrypting store loads a snapshot that
// was saved in the clear.
var ErrNotEncrypted = errors.New("snapshot is not encrypted")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new snapshots. Must be KeySize bytes.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt a
	// snapshot, so keys can be rotated without rewriting stored sessions.
	FallbackKeys [][]byte
}

type sealed struct {
	Data  domain.Snapshot `json:"data"`
	Title string          `json:"title,omitempty"`
}

type encryptionMiddleware struct {
	next   ports.SnapshotStore
	config EncryptionConfig
}

// NewEncryption creates a middleware that encrypts snapshot data and titles
// with AES-GCM. Kind and SavedAt stay readable so stores can list and expire
// sessions.
func NewEncryption(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != KeySize {
		return nil, fmt.Errorf("active key must be %d bytes, got %d", KeySize, len(config.ActiveKey))
	}
	for i, k := range config.FallbackKeys {
		if len(k) != KeySize {
			return nil, fmt.Errorf("fallback key %d must be %d bytes, got %d", i, KeySize, len(k))
		}
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

// ParseKey decodes a key given as 64 hex digits or as standard base64.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	var (
		key []byte
		err error
	)
	if len(s) == hex.EncodedLen(KeySize) {
		key, err = hex.DecodeString(s)
	} else {
		key, err = base64.StdEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, snap domain.StoredSnapshot) error {
	plain, err := json.Marshal(sealed{Data: snap.Data, Title: snap.Title})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// The kind is authenticated so an envelope cannot be replayed as another kind.
	ciphertext, err := encrypt(plain, m.config.ActiveKey, []byte(snap.Kind))
	if err != nil {
		return fmt.Errorf("failed to encrypt snapshot: %w", err)
	}

	envelope := domain.StoredSnapshot{
		Kind:    snap.Kind,
		Data:    domain.Snapshot(sealedPrefix + base64.StdEncoding.EncodeToString(ciphertext)),
		SavedAt: snap.SavedAt,
	}
	return m.next.Save(ctx, sessionID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (domain.StoredSnapshot, error) {
	envelope, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return domain.StoredSnapshot{}, err
	}

	encoded, ok := strings.CutPrefix(string(envelope.Data), sealedPrefix)
	if !ok {
		return domain.StoredSnapshot{}, fmt.Errorf("session %s: %w", sessionID, ErrNotEncrypted)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.StoredSnapshot{}, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plain, err := decryptWithRotation(ciphertext, []byte(envelope.Kind), m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return domain.StoredSnapshot{}, fmt.Errorf("failed to decrypt snapshot: %w", err)
	}

	var s sealed
	if err := json.Unmarshal(plain, &s); err != nil {
		return domain.StoredSnapshot{}, fmt.Errorf("failed to unmarshal decrypted snapshot: %w", err)
	}
	return domain.StoredSnapshot{
		Kind:    envelope.Kind,
		Data:    s.Data,
		Title:   s.Title,
		SavedAt: envelope.SavedAt,
	}, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Close releases the wrapped store when it holds resources.
func (m *encryptionMiddleware) Close() error {
	if c, ok := m.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func encrypt(plaintext, key, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

func decryptWithRotation(ciphertext, aad, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey, aad); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key, aad); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, aad)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
