package config

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()

	payload, err := Encrypt("correct horse battery staple", []byte("top-secret-owner-token"))
	require.NoError(t, err)
	require.NotEmpty(t, payload.Ciphertext)

	plaintext, err := Decrypt("correct horse battery staple", payload)
	require.NoError(t, err)
	require.Equal(t, "top-secret-owner-token", string(plaintext))
}

func TestDecrypt_WrongPassphrase(t *testing.T) {
	t.Parallel()

	payload, err := Encrypt("right-passphrase", []byte("secret"))
	require.NoError(t, err)

	_, err = Decrypt("wrong-passphrase", payload)
	require.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestSecretsConfig_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	s := SecretsConfig{OwnerAPIToken: "api-token-123", TOTPSeed: "JBSWY3DPEHPK3PXP"}
	require.NoError(t, s.EncryptSecrets("passphrase"))

	var restored SecretsConfig
	restored.Encrypted = s.Encrypted
	require.NoError(t, restored.DecryptSecrets("passphrase"))
	require.Equal(t, "api-token-123", restored.OwnerAPIToken)
	require.Equal(t, "JBSWY3DPEHPK3PXP", restored.TOTPSeed)
}

func TestGenerateTOTPSeed_VerifiesValidCode(t *testing.T) {
	t.Parallel()

	seed, err := GenerateTOTPSeed("perpvault", "owner-1")
	require.NoError(t, err)
	require.NotEmpty(t, seed)

	code, err := totp.GenerateCode(seed, time.Now())
	require.NoError(t, err)

	s := SecretsConfig{TOTPSeed: seed}
	require.NoError(t, s.VerifyTOTP(code))
	require.ErrorIs(t, s.VerifyTOTP("000000"), ErrInvalidTOTPCode)
}
