package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Base-36 alphabet used for provisioning passwords: digits plus lowercase letters.
const passwordAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GeneratedPasswordLength is the length of provisioning passwords handed out
// during registration.
const GeneratedPasswordLength = 8

// GeneratePassword returns a random base-36 password of the given length,
// drawn from crypto/rand. The password is a one-time provisioning secret the
// user is expected to change on first login.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = GeneratedPasswordLength
	}

	alphabetLen := big.NewInt(int64(len(passwordAlphabet)))
	out := make([]byte, length)
	for i := range out {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = passwordAlphabet[idx.Int64()]
	}

	return string(out), nil
}
