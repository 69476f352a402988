package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	minPasswordLength    = 8
	minIdentityTermRunes = 4
)

var (
	ErrWeakPassword = errors.New("weak password")
	// ErrPasswordContainsIdentity is a weak password that embeds the account's
	// name or email, so it still matches ErrWeakPassword.
	ErrPasswordContainsIdentity = fmt.Errorf("%w: contains account name or email", ErrWeakPassword)
)

// ValidatePasswordStrength requires at least eight characters with upper,
// lower and digit, and rejects passwords that contain a name word or the
// email local part of the account (identity terms shorter than four runes
// are ignored).
func ValidatePasswordStrength(password string, identity ...string) error {
	if len([]rune(password)) < minPasswordLength {
		return ErrWeakPassword
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return ErrWeakPassword
	}

	folded := strings.ToLower(password)
	for _, term := range identityTerms(identity) {
		if strings.Contains(folded, term) {
			return ErrPasswordContainsIdentity
		}
	}
	return nil
}

// identityTerms splits names on spaces and reduces emails to their local
// part.
func identityTerms(values []string) []string {
	terms := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if local, _, found := strings.Cut(value, "@"); found {
			value = local
		}
		for _, term := range strings.FieldsFunc(value, func(char rune) bool {
			return unicode.IsSpace(char) || char == '.' || char == '_' || char == '-' || char == '+'
		}) {
			if len([]rune(term)) >= minIdentityTermRunes {
				terms = append(terms, term)
			}
		}
	}
	return terms
}
