// Package validation provides custom validation rules for the application.
package validation

import (
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/mcpdeck/guard/internal/errors"
)

// weakSubstrings are obviously guessable fragments rejected in base secrets.
var weakSubstrings = []string{"password", "secret", "admin"}

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// BaseSecretStrength validates that a base secret is acceptable key material.
//
// The base secret is passphrase-like input that every per-record key is
// derived from, so trivially guessable values are rejected outright rather
// than merely warned about.
type BaseSecretStrength struct {
	MinLength int
}

// Validate checks if the base secret meets the configured requirements
func (b BaseSecretStrength) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_base_secret", "base secret must be a string")
	}

	minLength := b.MinLength
	if minLength <= 0 {
		minLength = 32
	}

	if len(s) < minLength {
		return validation.NewError(
			"validation_base_secret_min_length",
			"base secret is too short",
		)
	}

	if allSameCharacter(s) {
		return validation.NewError(
			"validation_base_secret_repeated",
			"base secret must not repeat a single character",
		)
	}

	if hasSequentialDigitRun(s, 8) {
		return validation.NewError(
			"validation_base_secret_sequential",
			"base secret must not contain sequential digits",
		)
	}

	lower := strings.ToLower(s)
	for _, weak := range weakSubstrings {
		if strings.Contains(lower, weak) {
			return validation.NewError(
				"validation_base_secret_weak_word",
				"base secret must not contain guessable words",
			)
		}
	}

	return nil
}

// allSameCharacter checks if the string is one character repeated
func allSameCharacter(s string) bool {
	if s == "" {
		return false
	}
	first := s[0]
	for i := 1; i < len(s); i++ {
		if s[i] != first {
			return false
		}
	}
	return true
}

// hasSequentialDigitRun checks for an ascending or descending run of digits
// of at least runLength anywhere in the string (e.g. "12345678", "98765432").
func hasSequentialDigitRun(s string, runLength int) bool {
	ascending, descending := 1, 1
	for i := 1; i < len(s); i++ {
		prev, cur := s[i-1], s[i]
		if !isDigit(prev) || !isDigit(cur) {
			ascending, descending = 1, 1
			continue
		}
		if cur == prev+1 {
			ascending++
		} else {
			ascending = 1
		}
		if cur == prev-1 {
			descending++
		} else {
			descending = 1
		}
		if ascending >= runLength || descending >= runLength {
			return true
		}
	}
	return false
}

// isDigit checks if the byte is an ASCII digit
func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
