// Package identity turns user-supplied identities into partition tokens.
package identity

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/carbonlog/carbonlog/internal/sentinel"
)

// Token returns the storage-safe partition name for an identity.
// Letters, digits, spaces and underscores survive; trailing spaces are dropped.
// Distinct identities may share a token.
func Token(id string) string {
	normalized := norm.NFC.String(id)

	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}

// Validate rejects identities that cannot address a partition.
func Validate(id string) error {
	if err := ensureNonEmpty("identity is required", id); err != nil {
		return err
	}
	if Token(id) == "" {
		return fmt.Errorf("identity %q has no storable characters: %w", id, sentinel.ErrMalformedInput)
	}
	return nil
}

// ValidateSector rejects an empty sector classification.
func ValidateSector(sector string) error {
	return ensureNonEmpty("sector is required", sector)
}

func ensureNonEmpty(msg, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s: %w", msg, sentinel.ErrMalformedInput)
	}
	return nil
}
