package service

import (
	"crypto/rand"
	"io"
	"math/big"
)

// Alphabet is lowercase base 36.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// GenerateCode draws length characters uniformly from Alphabet.
func GenerateCode(length int) (string, error) {
	return generateCode(rand.Reader, length)
}

func generateCode(random io.Reader, length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(random, alphabetSize)
		if err != nil {
			return "", err
		}
		b[i] = Alphabet[n.Int64()]
	}
	return string(b), nil
}

// IsCode reports whether s only uses Alphabet characters.
func IsCode(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}
