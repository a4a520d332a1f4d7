package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Apply applies ops to the JSON form of current and decodes the outcome back into T.
func Apply[T any](current T, ops []Operation) (T, error) {
	var zero T
	if len(ops) == 0 {
		return current, nil
	}
	currentJSON, err := sonic.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("marshal current: %w", err)
	}
	modified, err := ApplyJSON(currentJSON, ops)
	if err != nil {
		return zero, err
	}
	var result T
	if err := sonic.Unmarshal(modified, &result); err != nil {
		return zero, fmt.Errorf("patched document does not fit %T: %w", zero, err)
	}
	return result, nil
}

func ApplyJSON(doc []byte, ops []Operation) ([]byte, error) {
	ops = FixOperations(doc, ops)
	patchJSON, err := sonic.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("marshal operations: %w", err)
	}
	p, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	modified, err := p.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}
	return modified, nil
}

// Merge returns the RFC 7386 merge patch turning before into after.
func Merge(before, after []byte) ([]byte, error) {
	return jsonpatch.CreateMergePatch(before, after)
}

// FixOperations turns replace on a missing path into add and drops removals
// of paths that are already gone.
func FixOperations(doc []byte, ops []Operation) []Operation {
	var root any
	if err := sonic.Unmarshal(doc, &root); err != nil {
		return ops
	}
	fixed := make([]Operation, 0, len(ops))
	for _, op := range ops {
		switch op.Op {
		case OperationReplace:
			if !pathExists(root, op.Path) {
				op.Op = OperationAdd
			}
			fixed = append(fixed, op)
		case OperationRemove:
			if pathExists(root, op.Path) {
				fixed = append(fixed, op)
			}
		default:
			fixed = append(fixed, op)
		}
	}
	return fixed
}

func pathExists(doc any, path string) bool {
	if path == "" {
		return true
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}
	cur := doc
	for _, token := range strings.Split(path[1:], "/") {
		token = unescape(token)
		switch node := cur.(type) {
		case map[string]any:
			value, ok := node[token]
			if !ok {
				return false
			}
			cur = value
		case []any:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 || index >= len(node) {
				return false
			}
			cur = node[index]
		default:
			return false
		}
	}
	return true
}

func Escape(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

func unescape(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}

// Root returns the unescaped first segment of path.
func Root(path string) string {
	if !strings.HasPrefix(path, "/") {
		return ""
	}
	first, _, _ := strings.Cut(path[1:], "/")
	return unescape(first)
}
