package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters stored hashes were produced with.
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 16
	saltBytes    = 16
)

// HashPassword derives a hex hash for password under a fresh random salt.
func HashPassword(password string) (salt, hash string, err error) {
	raw := make([]byte, saltBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", "", err
	}
	salt = hex.EncodeToString(raw)
	key, err := derive(password, salt)
	if err != nil {
		return "", "", err
	}
	return salt, hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches the stored salt and hex hash.
// The salt is used as its literal string bytes.
func VerifyPassword(password, salt, hexHash string) bool {
	expected, err := hex.DecodeString(hexHash)
	if err != nil || len(expected) != scryptKeyLen {
		return false
	}
	key, err := derive(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(key, expected) == 1
}

func derive(password, salt string) ([]byte, error) {
	return scrypt.Key([]byte(password), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
}
