package id

import (
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// MaxLength is the longest id accepted from a caller.
const MaxLength = 128

// New returns a random uuid, prefixed with prefix and an underscore when
// prefix is not empty.
func New(prefix string) (string, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	if prefix == "" {
		return id, nil
	}
	return prefix + "_" + id, nil
}

// OrNew returns candidate when it is a safe id, otherwise a new id with
// prefix. Safe ids are at most MaxLength ascii letters, digits, '-', '_' or
// '.', so they can be logged and echoed verbatim.
func OrNew(candidate, prefix string) (string, error) {
	if Safe(candidate) {
		return candidate, nil
	}
	return New(prefix)
}

// Safe reports whether s is a safe id.
func Safe(s string) bool {
	if s == "" || len(s) > MaxLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
