package patch

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/bytedance/sonic"
)

// Diff returns the operations turning before into after. Both sides are
// compared through their JSON form; nested objects are walked, arrays and
// scalars are replaced whole.
func Diff(before, after any) ([]Operation, error) {
	beforeMap, err := toMap(before)
	if err != nil {
		return nil, fmt.Errorf("before: %w", err)
	}
	afterMap, err := toMap(after)
	if err != nil {
		return nil, fmt.Errorf("after: %w", err)
	}
	ops := make([]Operation, 0)
	diffMaps("", beforeMap, afterMap, &ops)
	return ops, nil
}

func toMap(v any) (map[string]any, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := sonic.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func diffMaps(prefix string, before, after map[string]any, ops *[]Operation) {
	for _, key := range sortedKeys(before) {
		if _, ok := after[key]; !ok {
			*ops = append(*ops, Operation{Op: OperationRemove, Path: prefix + "/" + Escape(key)})
		}
	}
	for _, key := range sortedKeys(after) {
		path := prefix + "/" + Escape(key)
		afterValue := after[key]
		beforeValue, exists := before[key]
		if !exists {
			*ops = append(*ops, Operation{Op: OperationAdd, Path: path, Value: afterValue})
			continue
		}
		afterObj, aok := afterValue.(map[string]any)
		beforeObj, bok := beforeValue.(map[string]any)
		if aok && bok {
			diffMaps(path, beforeObj, afterObj, ops)
			continue
		}
		if !reflect.DeepEqual(beforeValue, afterValue) {
			*ops = append(*ops, Operation{Op: OperationReplace, Path: path, Value: afterValue})
		}
	}
}
