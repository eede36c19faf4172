// Package vault encrypts per-user platform credentials for at-rest storage
// as a single opaque string column.
//
// The strong path is AES-256-GCM with a key derived from the configured
// secret via argon2id and a fresh random 12-byte nonce per call; the nonce
// is prepended to the ciphertext before base64 encoding. When no secret is
// configured the vault degrades to a reversible base64 encoding marked with
// a "plain:" prefix. The interface is identical in both modes, but fallback
// mode offers no confidentiality against an attacker with storage access,
// so construction logs the active mode once and Mode exposes it to metrics
// and health surfaces.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/mediatrack/internal/common"
	"github.com/dmitrijs2005/mediatrack/internal/logging"
)

// Mode identifies which encryption path the vault is running.
type Mode string

const (
	ModeStrong   Mode = "strong"
	ModeFallback Mode = "fallback"
)

const (
	nonceSize      = 12
	fallbackPrefix = "plain:"
)

// keySalt is a pinned application-level salt for argon2id key derivation.
// The derived key's strength comes from the configured secret.
var keySalt = []byte("mediatrack-vault-v1")

// DeriveKey derives a 32-byte AES key from a secret and salt using argon2id.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// Vault performs symmetric encryption of credential payloads.
type Vault struct {
	key  []byte
	mode Mode
}

// New builds a Vault from the configured secret. An empty secret selects
// fallback mode. The mode decision is logged once so operators can tell
// whether stored credentials are actually protected.
func New(ctx context.Context, secret string, logger logging.Logger) *Vault {
	if secret == "" {
		logger.Warn(ctx, "credential vault running in fallback mode, stored credentials are only encoded, not encrypted")
		return &Vault{mode: ModeFallback}
	}
	logger.Info(ctx, "credential vault initialized", "mode", ModeStrong)
	return &Vault{key: DeriveKey([]byte(secret), keySalt), mode: ModeStrong}
}

// Mode reports whether the vault encrypts (strong) or merely encodes (fallback).
func (v *Vault) Mode() Mode {
	return v.mode
}

// Encrypt serializes payload to JSON and seals it into an opaque string.
func (v *Vault) Encrypt(payload any) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	if v.mode == ModeFallback {
		return fallbackPrefix + base64.StdEncoding.EncodeToString(plaintext), nil
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	ciphertext := aesgcm.Seal(nil, nonce, plaintext, nil)

	// nonce || ciphertext in one column
	blob := make([]byte, 0, len(nonce)+len(ciphertext))
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens an opaque string produced by Encrypt and unmarshals the
// payload into v. Any tamper, truncation or format problem yields
// common.ErrDecryptionFailed; a silently wrong payload is never returned
// on the strong path because GCM authenticates the ciphertext.
func (v *Vault) Decrypt(opaque string, out any) error {
	if len(opaque) >= len(fallbackPrefix) && opaque[:len(fallbackPrefix)] == fallbackPrefix {
		plaintext, err := base64.StdEncoding.DecodeString(opaque[len(fallbackPrefix):])
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
		}
		if err := json.Unmarshal(plaintext, out); err != nil {
			return fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
		}
		return nil
	}

	if v.mode == ModeFallback {
		return fmt.Errorf("%w: no vault key configured for encrypted blob", common.ErrDecryptionFailed)
	}

	blob, err := base64.StdEncoding.DecodeString(opaque)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	if len(blob) < nonceSize {
		return fmt.Errorf("%w: blob too short", common.ErrDecryptionFailed)
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	return nil
}
