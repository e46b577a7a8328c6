package prompt

import (
	"strings"

	"github.com/spf13/cast"
)

// Params is the caller-supplied parameter mapping of a task.
// Accessors never fail: missing or unconvertible values yield the default.
type Params map[string]any

// String returns the value under key as a string, or def when absent or empty
func (p Params) String(key, def string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return def
	}
	s, err := cast.ToStringE(value)
	if err != nil || s == "" {
		return def
	}
	return s
}

// Int returns the value under key as an int, or def when absent or not numeric
func (p Params) Int(key string, def int) int {
	value, ok := p[key]
	if !ok || value == nil {
		return def
	}
	n, err := cast.ToIntE(value)
	if err != nil {
		return def
	}
	return n
}

// Strings returns the value under key as a list. A plain string is split on
// commas so "交通,教育" and ["交通","教育"] read the same.
func (p Params) Strings(key string) []string {
	value, ok := p[key]
	if !ok || value == nil {
		return nil
	}

	var items []string
	if s, isString := value.(string); isString {
		items = strings.Split(s, ",")
	} else {
		list, err := cast.ToStringSliceE(value)
		if err != nil {
			return nil
		}
		items = list
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
