package protocol

import (
	"math"
	"strconv"
	"strings"
)

// Args are the raw arguments of a call, as decoded from JSON.
type Args map[string]any

// String returns an optional string parameter. Absent and null yield "".
func (a Args) String(name string) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", InvalidParams("parameter '%s' must be a string", name)
	}
	return s, nil
}

// RequiredString returns a string parameter that must be present and not
// blank.
func (a Args) RequiredString(name string) (string, error) {
	s, err := a.String(name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", InvalidParams("missing required parameter: %s", name)
	}
	return s, nil
}

// Key returns the ticket key parameter. Besides strings it accepts whole
// JSON numbers, so {"key": 5} means the same as {"key": "5"}.
func (a Args) Key(name string) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", InvalidParams("missing required parameter: %s", name)
	}
	switch k := v.(type) {
	case string:
		if strings.TrimSpace(k) == "" {
			return "", InvalidParams("missing required parameter: %s", name)
		}
		return k, nil
	case float64:
		if k != math.Trunc(k) || k < 0 || k > math.MaxInt32 {
			return "", InvalidParams("parameter '%s' must be a key such as MDT-005 or a whole number", name)
		}
		return strconv.Itoa(int(k)), nil
	default:
		return "", InvalidParams("parameter '%s' must be a string", name)
	}
}

// Bool returns an optional boolean parameter.
func (a Args) Bool(name string) (bool, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, InvalidParams("parameter '%s' must be a boolean", name)
	}
	return b, nil
}

// StringList accepts a single string or an array of strings.
func (a Args) StringList(name string) ([]string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case string:
		if strings.TrimSpace(list) == "" {
			return nil, nil
		}
		return []string{list}, nil
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, InvalidParams("parameter '%s' must contain only strings", name)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, InvalidParams("parameter '%s' must be a string or an array of strings", name)
	}
}

// Object returns a required JSON object parameter.
func (a Args) Object(name string) (map[string]any, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, InvalidParams("missing required parameter: %s", name)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, InvalidParams("parameter '%s' must be an object", name)
	}
	return m, nil
}

// Enum checks an optional string parameter against valid values. An
// absent value yields def.
func Enum[T ~string](a Args, name string, valid []T, def T) (T, error) {
	s, err := a.String(name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return def, nil
	}
	for _, v := range valid {
		if string(v) == s {
			return v, nil
		}
	}
	return "", InvalidParams("invalid %s '%s': must be one of: %s", name, s, joinValues(valid))
}

// EnumList checks every element of a string-or-array parameter.
func EnumList[T ~string](a Args, name string, valid []T) ([]T, error) {
	items, err := a.StringList(name)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, s := range items {
		found := false
		for _, v := range valid {
			if string(v) == s {
				out = append(out, v)
				found = true
				break
			}
		}
		if !found {
			return nil, InvalidParams("invalid %s '%s': must be one of: %s", name, s, joinValues(valid))
		}
	}
	return out, nil
}

func joinValues[T ~string](valid []T) string {
	names := make([]string, len(valid))
	for i, v := range valid {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
