package utils

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidDomainFormat is returned when a name does not look like a
// registrable second-level domain (label.tld).
var ErrInvalidDomainFormat = errors.New("invalid domain format")

// domainPattern accepts a single label of 3..63 characters followed by an
// alphabetic TLD of at least two letters.  The label may contain hyphens but
// must start and end with an alphanumeric character.
var domainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]\.[a-z]{2,}$`)

// NormalizeDomain converts user input such as "https://www.Example.com/path"
// into its canonical stored form "example.com".  The transformation is pure
// and idempotent: NormalizeDomain(NormalizeDomain(x)) == NormalizeDomain(x).
func NormalizeDomain(raw string) string {
	s := strings.ToLower(raw)
	// Repeat until stable so stacked prefixes ("www.www.") or whitespace left
	// behind by a stripped scheme are removed in a single call.
	for {
		prev := s
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "https://")
		s = strings.TrimPrefix(s, "http://")
		s = strings.TrimPrefix(s, "www.")
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = s[:i]
		}
		if s == prev {
			return s
		}
	}
}

// ValidateDomain checks an already normalized name against the accepted
// format.
func ValidateDomain(name string) error {
	if !domainPattern.MatchString(name) {
		return ErrInvalidDomainFormat
	}
	return nil
}

// CleanDomain normalizes raw and validates the result.
func CleanDomain(raw string) (string, error) {
	name := NormalizeDomain(raw)
	if err := ValidateDomain(name); err != nil {
		return "", err
	}
	return name, nil
}
