package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"math/big"
)

const otpDigits = 6

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly distributed, zero-padded 6 digit code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// HashSecret keys short-lived secrets with the server pepper before they are stored,
// so a leaked row cannot be brute forced without the key.
func HashSecret(pepper string, value string) []byte {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(value))
	return mac.Sum(nil)
}

func EqualHashes(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
