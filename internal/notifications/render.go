package notifications

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrMalformedTemplate is returned when a template contains an unbalanced or empty brace.
var ErrMalformedTemplate = errors.New("notifications: malformed template")

// MissingVariableError reports placeholders that had no value at render time.
type MissingVariableError struct {
	Names []string
}

func (e *MissingVariableError) Error() string {
	if e == nil || len(e.Names) == 0 {
		return "missing template variable"
	}
	return "missing template variable: " + strings.Join(e.Names, ", ")
}

type segment struct {
	literal     string
	placeholder string
}

// parse splits tmpl into literal and placeholder segments. `{{` and `}}` are
// literal braces; `{name}` is a placeholder whose name is taken verbatim,
// surrounding spaces included.
func parse(tmpl string) ([]segment, error) {
	var (
		segments []segment
		buf      strings.Builder
	)

	flush := func() {
		if buf.Len() > 0 {
			segments = append(segments, segment{literal: buf.String()})
			buf.Reset()
		}
	}

	for i := 0; i < len(tmpl); i++ {
		ch := tmpl[i]
		switch ch {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				buf.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexAny(tmpl[i+1:], "{}")
			if end < 0 || tmpl[i+1+end] != '}' {
				return nil, fmt.Errorf("%w: unclosed '{' at offset %d", ErrMalformedTemplate, i)
			}
			name := tmpl[i+1 : i+1+end]
			if name == "" {
				return nil, fmt.Errorf("%w: empty placeholder at offset %d", ErrMalformedTemplate, i)
			}
			flush()
			segments = append(segments, segment{placeholder: name})
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				buf.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("%w: single '}' at offset %d", ErrMalformedTemplate, i)
		default:
			buf.WriteByte(ch)
		}
	}
	flush()
	return segments, nil
}

// Placeholders returns the distinct placeholder names in order of first appearance.
func Placeholders(tmpl string) ([]string, error) {
	segments, err := parse(tmpl)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var names []string
	for _, seg := range segments {
		if seg.placeholder == "" {
			continue
		}
		if _, ok := seen[seg.placeholder]; ok {
			continue
		}
		seen[seg.placeholder] = struct{}{}
		names = append(names, seg.placeholder)
	}
	return names, nil
}

// Render substitutes every placeholder in tmpl with its value from vars.
// Unused entries in vars are ignored. A *MissingVariableError lists every
// placeholder without a value.
func Render(tmpl string, vars map[string]any) (string, error) {
	segments, err := parse(tmpl)
	if err != nil {
		return "", err
	}

	var (
		out     strings.Builder
		missing []string
	)
	for _, seg := range segments {
		if seg.placeholder == "" {
			out.WriteString(seg.literal)
			continue
		}
		value, ok := vars[seg.placeholder]
		if !ok {
			if !slices.Contains(missing, seg.placeholder) {
				missing = append(missing, seg.placeholder)
			}
			continue
		}
		out.WriteString(formatValue(value))
	}

	if len(missing) > 0 {
		return "", &MissingVariableError{Names: missing}
	}
	return out.String(), nil
}

// RenderPair renders a title and message together, merging missing names from both.
func RenderPair(title, message string, vars map[string]any) (string, string, error) {
	renderedTitle, titleErr := Render(title, vars)
	renderedMessage, messageErr := Render(message, vars)

	var missing []string
	for _, err := range []error{titleErr, messageErr} {
		if err == nil {
			continue
		}
		var mv *MissingVariableError
		if !errors.As(err, &mv) {
			return "", "", err
		}
		for _, name := range mv.Names {
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
		}
	}
	if len(missing) > 0 {
		return "", "", &MissingVariableError{Names: missing}
	}
	return renderedTitle, renderedMessage, nil
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; whole values print without a fraction.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}
