package store

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// HashPromptContent computes SHA-256 of the prompt text for deduplication.
//
// Leading and trailing whitespace is stripped before hashing so that a
// trailing newline does not create a second copy of the same prompt.
// Titles are deliberately excluded: the content is the identity.
func HashPromptContent(content string) string {
	h := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return fmt.Sprintf("%x", h)
}
