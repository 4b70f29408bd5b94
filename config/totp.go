package config

import (
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrInvalidTOTPCode is returned by VerifyTOTP when code does not match the
// current time-step for the configured seed.
var ErrInvalidTOTPCode = errors.New("config: invalid TOTP code")

// GenerateTOTPSeed provisions a fresh TOTP seed for the named owner
// account, for first-time admin setup.
func GenerateTOTPSeed(issuer, owner string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: issuer, AccountName: owner})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// VerifyTOTP checks code against the decrypted TOTP seed, gating the
// owner-only admin endpoints (token whitelisting and pause/unpause).
func (s *SecretsConfig) VerifyTOTP(code string) error {
	if s.TOTPSeed == "" {
		return ErrEncryptedPayload
	}
	ok, err := totp.ValidateCustom(code, s.TOTPSeed, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTOTPCode
	}
	return nil
}
