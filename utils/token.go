package utils

import (
	"fmt"
	"math/rand"
	"time"
)

var tokenRng = rand.New(rand.NewSource(time.Now().UnixNano()))

func GenerateRandomToken(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	token := make([]byte, length)
	for i := range token {
		token[i] = charset[tokenRng.Intn(len(charset))]
	}
	return string(token)
}

// GenerateMFACode returns a six digit one-time code for login verification.
func GenerateMFACode() string {
	return fmt.Sprintf("%06d", tokenRng.Intn(1000000))
}
