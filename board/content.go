// ABOUTME: Content validation for card text: non-empty after trim, bounded length.
// ABOUTME: Checked locally before any cache write or network call.
package board

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxContentLength is the maximum number of runes allowed in card content.
const MaxContentLength = 1000

// ValidateContent checks card text against the content policy. The returned
// error, if any, is an *InvalidContentError.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return &InvalidContentError{Reason: "empty after trimming whitespace"}
	}
	if n := utf8.RuneCountInString(content); n > MaxContentLength {
		return &InvalidContentError{
			Reason: fmt.Sprintf("length %d exceeds maximum %d", n, MaxContentLength),
		}
	}
	return nil
}
