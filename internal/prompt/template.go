package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"story-server/internal/models"
)

// Render substitutes {name} placeholders with values from vars.
// "{{" and "}}" produce literal braces. Substituted values are not expanded again.
func Render(tmpl string, vars map[string]interface{}) (string, error) {
	var sb strings.Builder
	sb.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed '{' at offset %d", models.ErrMalformedTemplate, i)
			}
			name := tmpl[i+1 : i+1+end]
			if name == "" || strings.ContainsAny(name, "{ \t\n") {
				return "", fmt.Errorf("%w: invalid placeholder %q", models.ErrMalformedTemplate, name)
			}
			value, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("%w: %s", models.ErrMissingTemplateVariable, name)
			}
			s, err := stringify(value)
			if err != nil {
				return "", fmt.Errorf("failed to render variable %s: %w", name, err)
			}
			sb.WriteString(s)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("%w: single '}' at offset %d", models.ErrMalformedTemplate, i)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

// Variables lists the placeholder names used by tmpl, in order of first use.
func Variables(tmpl string) []string {
	var names []string
	seen := make(map[string]struct{})
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '{' {
			continue
		}
		if i+1 < len(tmpl) && tmpl[i+1] == '{' {
			i++
			continue
		}
		end := strings.IndexByte(tmpl[i+1:], '}')
		if end <= 0 {
			continue
		}
		name := tmpl[i+1 : i+1+end]
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
		i += end + 1
	}
	return names
}

func stringify(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case nil:
		return "null", nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
