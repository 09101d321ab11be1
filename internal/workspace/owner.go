package workspace

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxOwnerLength = 128

// ErrInvalidOwner marks an owner key that cannot name a workspace directory.
var ErrInvalidOwner = errors.New("invalid owner key")

// SanitizeOwner maps an owner key onto a single safe path segment. Characters
// outside [A-Za-z0-9._-] become underscores and leading dots are dropped, so
// the result can never traverse out of the workspace root.
func SanitizeOwner(owner string) (string, error) {
	trimmed := strings.TrimSpace(owner)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidOwner)
	}
	if utf8.RuneCountInString(trimmed) > maxOwnerLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidOwner, maxOwnerLength)
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	cleaned := strings.TrimLeft(b.String(), ".")
	if strings.Trim(cleaned, "_") == "" {
		return "", fmt.Errorf("%w: %q has no usable characters", ErrInvalidOwner, owner)
	}
	return cleaned, nil
}
