package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeAlphabet avoids characters that are easy to confuse over chat (0/O, 1/I)
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateSecureCode returns a human readable code such as "RES-7K2QMP"
func GenerateSecureCode(prefix string, length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	if prefix == "" {
		return string(buf), nil
	}
	return prefix + "-" + string(buf), nil
}
