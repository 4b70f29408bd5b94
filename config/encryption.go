package config

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/thrasher-corp/perpvault/common/crypto"
)

// saltLength and keyLength match the teacher's own config-encryption demo:
// a 16-byte random salt, a SHA-256-derived 32-byte AES-256 key.
const (
	saltLength = 16
	keyLength  = 32
)

// ErrWrongPassphrase is returned by Decrypt when GCM authentication fails —
// almost always a wrong passphrase rather than corrupted ciphertext.
var ErrWrongPassphrase = errors.New("config: wrong passphrase or corrupted secret")

// EncryptedPayload is a salted, AES-GCM-sealed secret blob as persisted to
// disk. Salt and Nonce are stored alongside the ciphertext so Decrypt can
// re-derive the same key and open the same seal without any other state.
type EncryptedPayload struct {
	Salt       []byte `mapstructure:"salt"`
	Nonce      []byte `mapstructure:"nonce"`
	Ciphertext []byte `mapstructure:"ciphertext"`
}

// deriveKey turns passphrase and salt into a fixed-length AES key with a
// single SHA-256 over passphrase||salt, the teacher's own lightweight stand-in for a proper
// KDF where the retrieved example corpus carries no bcrypt/scrypt/argon2
// dependency to reach for instead.
func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	material := append([]byte(passphrase), salt...)
	key, err := crypto.GetSHA256(material)
	if err != nil {
		return nil, err
	}
	return key[:keyLength], nil
}

// Encrypt seals plaintext under a key derived from passphrase and a fresh
// random salt.
func Encrypt(passphrase string, plaintext []byte) (EncryptedPayload, error) {
	salt, err := crypto.GetRandomSalt(nil, saltLength)
	if err != nil {
		return EncryptedPayload{}, err
	}
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return EncryptedPayload{}, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return EncryptedPayload{}, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return EncryptedPayload{}, err
	}
	nonceSalt, err := crypto.GetRandomSalt(nil, gcm.NonceSize())
	if err != nil {
		return EncryptedPayload{}, err
	}
	ciphertext := gcm.Seal(nil, nonceSalt, plaintext, nil)
	return EncryptedPayload{Salt: salt, Nonce: nonceSalt, Ciphertext: ciphertext}, nil
}

// Decrypt opens p under a key re-derived from passphrase and p's stored
// salt.
func Decrypt(passphrase string, p EncryptedPayload) ([]byte, error) {
	if len(p.Ciphertext) == 0 {
		return nil, ErrEncryptedPayload
	}
	key, err := deriveKey(passphrase, p.Salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, p.Nonce, p.Ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}

// DecryptSecrets populates OwnerAPIToken/TOTPSeed in place from the
// Encrypted payload, under passphrase. The two fields are stored together,
// newline-separated, inside the single sealed payload.
func (s *SecretsConfig) DecryptSecrets(passphrase string) error {
	plaintext, err := Decrypt(passphrase, s.Encrypted)
	if err != nil {
		return err
	}
	parts := splitTwo(string(plaintext), '\n')
	s.OwnerAPIToken = parts[0]
	s.TOTPSeed = parts[1]
	return nil
}

// EncryptSecrets seals OwnerAPIToken/TOTPSeed into Encrypted under
// passphrase, ready to persist.
func (s *SecretsConfig) EncryptSecrets(passphrase string) error {
	plaintext := s.OwnerAPIToken + "\n" + s.TOTPSeed
	payload, err := Encrypt(passphrase, []byte(plaintext))
	if err != nil {
		return err
	}
	s.Encrypted = payload
	return nil
}

func splitTwo(s string, sep byte) [2]string {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return [2]string{s[:i], s[i+1:]}
		}
	}
	return [2]string{s, ""}
}
