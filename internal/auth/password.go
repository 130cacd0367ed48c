package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrWrongPassword = errors.New("incorrect username or password")

// HashPassword hashes password with bcrypt. cost <= 0 uses bcrypt.DefaultCost.
func HashPassword(password string, cost int) ([]byte, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// CheckPassword compares password with a bcrypt hash
func CheckPassword(hash []byte, password string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}
