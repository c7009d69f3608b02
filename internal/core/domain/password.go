package domain

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	MinPasswordLength = 16
	passwordSpecials  = `!@#$%^&*(),.?":{}|<>`
)

// ValidatePassword enforces the account password policy.
func ValidatePassword(pw string) error {
	if len([]rune(pw)) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters long", ErrWeakPassword, MinPasswordLength)
	}
	var upper, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper {
		return fmt.Errorf("%w: must contain at least one uppercase letter", ErrWeakPassword)
	}
	if !digit {
		return fmt.Errorf("%w: must contain at least one number", ErrWeakPassword)
	}
	if !special {
		return fmt.Errorf("%w: must contain at least one special character", ErrWeakPassword)
	}
	return nil
}
