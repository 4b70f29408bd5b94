// Package crypto collects the small hashing/encoding primitives the config
// package uses to encrypt secrets at rest and the key package's callers use
// to fingerprint payloads.
package crypto

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // fingerprinting only, not used for secrets
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // HMAC-SHA1 compatibility, not used for secrets
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"hash"
)

// HashAlgo selects the digest used by GetHMAC.
type HashAlgo uint8

// Supported HMAC digests.
const (
	HashSHA1 HashAlgo = iota
	HashSHA256
	HashSHA512
	HashSHA512_384
	HashMD5
)

// ErrSaltLengthTooSmall is returned by GetRandomSalt for a non-positive
// requested length.
var ErrSaltLengthTooSmall = errors.New("salt length is too small")

// HexEncodeToString returns the lowercase hex encoding of data.
func HexEncodeToString(data []byte) string {
	return hex.EncodeToString(data)
}

// Base64Decode decodes standard base64 text.
func Base64Decode(data string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(data)
}

// Base64Encode encodes data as standard base64 text.
func Base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// GetRandomSalt returns a cryptographically random salt of length bytes,
// appended to input (input may be nil).
func GetRandomSalt(input []byte, length int) ([]byte, error) {
	if length <= 0 {
		return nil, ErrSaltLengthTooSmall
	}
	salt := make([]byte, len(input)+length)
	copy(salt, input)
	if _, err := rand.Read(salt[len(input):]); err != nil {
		return nil, err
	}
	return salt, nil
}

// GetMD5 returns the MD5 digest of data.
func GetMD5(data []byte) ([]byte, error) {
	h := md5.New() //nolint:gosec
	return sumOrError(h, data)
}

// GetSHA256 returns the SHA-256 digest of data.
func GetSHA256(data []byte) ([]byte, error) {
	return sumOrError(sha256.New(), data)
}

// GetSHA512 returns the SHA-512 digest of data.
func GetSHA512(data []byte) ([]byte, error) {
	return sumOrError(sha512.New(), data)
}

// GetHMAC returns the keyed-hash MAC of data under key, using the digest
// named by algo.
func GetHMAC(algo HashAlgo, data, key []byte) ([]byte, error) {
	var newHash func() hash.Hash
	switch algo {
	case HashSHA1:
		newHash = sha1.New //nolint:gosec
	case HashSHA256:
		newHash = sha256.New
	case HashSHA512:
		newHash = sha512.New
	case HashSHA512_384:
		newHash = sha512.New384
	case HashMD5:
		newHash = md5.New //nolint:gosec
	default:
		return nil, errors.New("crypto: unsupported HMAC hash algorithm")
	}
	mac := hmac.New(newHash, key)
	return sumOrError(mac, data)
}

func sumOrError(h hash.Hash, data []byte) ([]byte, error) {
	if _, err := h.Write(data); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
