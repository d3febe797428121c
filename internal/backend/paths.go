package backend

import (
	"fmt"
	"path"
	"strings"
)

// InvalidPathError is the single error kind produced by ValidatePath. All
// rejections carry one of three fixed reason strings so tool layers can show
// the agent a stable, actionable message.
type InvalidPathError struct {
	// Path is the raw input that was rejected.
	Path string
	// Reason is the human-readable rejection reason.
	Reason string
}

func (e *InvalidPathError) Error() string {
	return e.Reason
}

// ValidatePath normalizes a caller-supplied path into a canonical absolute
// virtual path, or rejects it. The returned path always starts with "/",
// uses forward slashes only, and contains no ".." components.
//
// Backslashes are treated as separators so paths typed with Windows-style
// separators still work. A leading "~" is rejected as a traversal attempt:
// there is no home directory inside the virtual filesystem.
//
// When allowedPrefixes is non-empty the normalized path must sit under one
// of the prefixes at a directory boundary, so "/workspace-evil/file" does
// not satisfy a "/workspace/" prefix.
func ValidatePath(raw string, allowedPrefixes ...string) (string, error) {
	normalized := strings.ReplaceAll(raw, "\\", "/")

	if isWindowsAbsolute(normalized) {
		return "", &InvalidPathError{Path: raw, Reason: "Windows absolute paths are not supported"}
	}
	if strings.HasPrefix(normalized, "~") {
		return "", &InvalidPathError{Path: raw, Reason: "Path traversal not allowed"}
	}

	// Scan the pre-normalized input for ".." components. Lexical cleaning
	// below would swallow traversal sequences that walk up past the root, so
	// rejection must key off the input, not the cleaned output. ".." as a
	// substring inside a component (e.g. "v2..0") stays legal.
	for _, component := range strings.Split(normalized, "/") {
		if component == ".." {
			return "", &InvalidPathError{Path: raw, Reason: "Path traversal not allowed"}
		}
	}

	// path.Clean collapses "//" and "." segments the same way POSIX normpath
	// does. Cleaning before the "/" prepend keeps "." and "" mapping to "/.",
	// which callers rely on.
	cleaned := path.Clean(normalized)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}

	if len(allowedPrefixes) > 0 {
		matched := false
		for _, prefix := range allowedPrefixes {
			if hasPathPrefix(cleaned, prefix) {
				matched = true
				break
			}
		}
		if !matched {
			return "", &InvalidPathError{
				Path:   raw,
				Reason: fmt.Sprintf("Path must start with one of %v", allowedPrefixes),
			}
		}
	}

	return cleaned, nil
}

// isWindowsAbsolute reports whether the path starts with a drive letter,
// e.g. "C:" or "d:".
func isWindowsAbsolute(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	letter := p[0]
	return (letter >= 'a' && letter <= 'z') || (letter >= 'A' && letter <= 'Z')
}

// hasPathPrefix reports whether p equals prefix or sits strictly under it,
// matching only at path-segment boundaries.
func hasPathPrefix(p string, prefix string) bool {
	trimmed := strings.TrimSuffix(prefix, "/")
	if trimmed == "" {
		// The root prefix admits every validated path.
		return true
	}
	return p == trimmed || strings.HasPrefix(p, trimmed+"/")
}
