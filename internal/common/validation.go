package common

import (
	"fmt"
	"regexp"
	"strings"
)

// Publication numbers look like CN1790643A / CN109888123B / US2019123456A1.
// The pipeline only needs them to be non-empty, filesystem-safe tokens with
// a country prefix; anything else is rejected before a stage ever sees it.
var patentNoPattern = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z]{4,15}$`)

// ValidatePatentNo reports whether s is a usable publication number.
func ValidatePatentNo(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("empty patent number: %w", ErrInvalidInput)
	}
	if !patentNoPattern.MatchString(s) {
		return fmt.Errorf("malformed patent number %q: %w", s, ErrInvalidInput)
	}
	return nil
}
