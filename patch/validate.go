package patch

import (
	"fmt"
	"strings"
)

// ValidatePaths checks every operation against allowed. An allowed pattern may
// use "*" or "-" for one path segment, e.g. "/items/*".
func ValidatePaths(ops []Operation, allowed map[string]bool) error {
	for i, op := range ops {
		if !pathAllowed(op.Path, allowed) {
			return fmt.Errorf("operation %d: path %q is not allowed", i, op.Path)
		}
	}
	return nil
}

func pathAllowed(path string, allowed map[string]bool) bool {
	if len(allowed) == 0 || allowed[path] {
		return true
	}
	segments := strings.Split(path, "/")
	return matchWildcard(segments, 1, allowed, false)
}

func matchWildcard(segments []string, index int, allowed map[string]bool, substituted bool) bool {
	if index >= len(segments) {
		return substituted && allowed[strings.Join(segments, "/")]
	}
	original := segments[index]
	defer func() { segments[index] = original }()
	for _, wildcard := range []string{"*", "-"} {
		segments[index] = wildcard
		if matchWildcard(segments, index+1, allowed, true) {
			return true
		}
	}
	segments[index] = original
	return matchWildcard(segments, index+1, allowed, substituted)
}
