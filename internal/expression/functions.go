package expression

import (
	"fmt"
	"strings"

	"github.com/tombee/ruline/pkg/value"
)

// containsFunc checks whether a collection holds an element.
// Usage: has(variables.tags, "vip")
//
// Arrays compare elements by value, objects check for a key and strings
// check for a substring. Anything else yields false.
func containsFunc(args ...interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("has requires exactly 2 arguments, got %d", len(args))
	}

	switch collection := value.Normalize(args[0]).(type) {
	case []any:
		return value.Contains(collection, args[1]), nil
	case map[string]any:
		key, ok := args[1].(string)
		if !ok {
			return false, nil
		}
		_, found := collection[key]
		return found, nil
	case string:
		substr, ok := args[1].(string)
		if !ok {
			return false, nil
		}
		return substr != "" && strings.Contains(collection, substr), nil
	default:
		return false, nil
	}
}

// lenFunc returns the length of a collection or string.
// Usage: length(data.items) > 0
func lenFunc(args ...interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("length requires exactly 1 argument, got %d", len(args))
	}

	switch v := value.Normalize(args[0]).(type) {
	case nil:
		return 0, nil
	case []any:
		return len(v), nil
	case map[string]any:
		return len(v), nil
	case string:
		return len(v), nil
	default:
		return nil, fmt.Errorf("length: unsupported type %T", args[0])
	}
}
