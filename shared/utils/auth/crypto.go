package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// Length of the persistent-login remember token. Rotated on every
// credential change.
const rememberTokenLength = 60

const rememberTokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPasswordHash verifies a plaintext password against a bcrypt hash
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Generate Random String (for password reset token)
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateRememberToken generates a 60-character alphanumeric remember token
func GenerateRememberToken() (string, error) {
	token := make([]byte, rememberTokenLength)
	max := big.NewInt(int64(len(rememberTokenAlphabet)))

	for i := range token {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		token[i] = rememberTokenAlphabet[n.Int64()]
	}

	return string(token), nil
}

func GenerateSessionID() (string, error) {
	return GenerateRandomToken(32)
}
