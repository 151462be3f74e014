package cryptox

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// otpSecretBytes is the size of the throwaway HOTP secret behind each code.
const otpSecretBytes = 20

// GenerateNumericCode returns a six digit one-time code.
//
// Each call draws a fresh random secret and counter and runs them through
// HOTP (RFC 4226), whose dynamic truncation yields a uniformly distributed
// zero-padded decimal string. The secret is discarded; the code is the only
// thing that gets stored and mailed.
func GenerateNumericCode() (string, error) {
	raw := make([]byte, otpSecretBytes+8)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("cryptox: read otp entropy: %w", err)
	}

	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:otpSecretBytes])
	counter := binary.BigEndian.Uint64(raw[otpSecretBytes:])

	code, err := hotp.GenerateCodeCustom(secret, counter, hotp.ValidateOpts{
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("cryptox: generate otp: %w", err)
	}
	return code, nil
}
