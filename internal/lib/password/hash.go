// Package password hashes and checks staff passwords with bcrypt and enforces
// the password strength rule.
package password

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinLength is the shortest accepted password.
const MinLength = 8

// Strength rule violations.
var (
	ErrTooShort     = errors.New("password is too short")
	ErrNoLowercase  = errors.New("password has no lowercase letter")
	ErrNoUppercase  = errors.New("password has no uppercase letter")
	ErrNoDigit      = errors.New("password has no digit")
	ErrHashMismatch = bcrypt.ErrMismatchedHashAndPassword
)

// GetHash returns the bcrypt hash of password.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash returns nil when password matches hash.
func CompareHash(hash, password string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CheckStrength requires at least MinLength characters with a lowercase
// letter, an uppercase letter and a digit. All violations are returned joined.
func CheckStrength(password string) error {
	var lower, upper, digit bool
	n := 0
	for _, r := range password {
		n++
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	var errs []error
	if n < MinLength {
		errs = append(errs, ErrTooShort)
	}
	if !lower {
		errs = append(errs, ErrNoLowercase)
	}
	if !upper {
		errs = append(errs, ErrNoUppercase)
	}
	if !digit {
		errs = append(errs, ErrNoDigit)
	}
	return errors.Join(errs...)
}
