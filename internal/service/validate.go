package service

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	minPasswordLen    = 12
	passwordSpecials  = "@$!%*?&"
	maxPasswordLength = 256
)

var emailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailRegexp.MatchString(email)
}

// IsStrongPassword requires at least minPasswordLen characters drawn from
// letters, digits and passwordSpecials, with at least one of each class.
func IsStrongPassword(pw string) bool {
	if len(pw) < minPasswordLen || len(pw) > maxPasswordLength {
		return false
	}

	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case r > unicode.MaxASCII:
			return false
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}

	return lower && upper && digit && special
}
