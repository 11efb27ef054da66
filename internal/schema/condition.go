package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Condition gates a field's visibility on another field's value.
type Condition struct {
	Field    string `yaml:"field" json:"field"`
	Operator string `yaml:"operator" json:"operator"`
	Value    string `yaml:"value,omitempty" json:"value,omitempty"`
}

// Evaluate applies the condition against submitted values. Unknown
// operators evaluate permissively to true so a schema authored against a
// newer operator set degrades to showing the field rather than hiding it.
func (c Condition) Evaluate(values map[string]any) bool {
	raw := values[c.Field]
	actual := stringify(raw)

	switch c.Operator {
	case "equals":
		return actual == c.Value
	case "not_equals":
		return actual != c.Value
	case "present":
		return strings.TrimSpace(actual) != ""
	case "blank":
		return strings.TrimSpace(actual) == ""
	case "greater_than":
		a, errA := strconv.ParseFloat(strings.TrimSpace(actual), 64)
		b, errB := strconv.ParseFloat(c.Value, 64)
		return errA == nil && errB == nil && a > b
	case "less_than":
		a, errA := strconv.ParseFloat(strings.TrimSpace(actual), 64)
		b, errB := strconv.ParseFloat(c.Value, 64)
		return errA == nil && errB == nil && a < b
	case "includes":
		return containsToken(raw, actual, c.Value)
	case "not_includes":
		return !containsToken(raw, actual, c.Value)
	case "matches":
		re, err := regexp.Compile(c.Value)
		return err == nil && re.MatchString(actual)
	default:
		return true
	}
}

// containsToken checks membership for both list-valued and scalar inputs.
func containsToken(raw any, actual, want string) bool {
	switch v := raw.(type) {
	case []string:
		for _, item := range v {
			if item == want {
				return true
			}
		}
		return false
	case []any:
		for _, item := range v {
			if stringify(item) == want {
				return true
			}
		}
		return false
	default:
		return strings.Contains(actual, want)
	}
}

// stringify renders a submitted value the way form encodings do.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprintf("%v", val)
	}
}
