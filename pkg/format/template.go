// Package format renders display templates of the form "{total} ({mention})"
// against a map of counter values. Templates are parsed once at startup;
// a malformed template is a configuration error, not something to recover
// from at render time.
package format

import (
	"fmt"
	"strconv"
	"strings"
)

// Template is a parsed display template. The zero value is not usable;
// obtain one through Parse.
type Template struct {
	raw      string
	segments []segment
}

// segment is either a literal run of text or a single {key} placeholder.
type segment struct {
	text        string
	placeholder bool
}

// Parse compiles a template string. Placeholders are written as {name};
// unmatched or empty braces fail parsing.
func Parse(raw string) (*Template, error) {
	t := &Template{raw: raw}

	rest := raw
	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.IndexByte(rest, '}') >= 0 {
				return nil, fmt.Errorf("parse template %q: unmatched '}'", raw)
			}
			t.segments = append(t.segments, segment{text: rest})
			break
		}

		if open > 0 {
			lit := rest[:open]
			if strings.IndexByte(lit, '}') >= 0 {
				return nil, fmt.Errorf("parse template %q: unmatched '}'", raw)
			}
			t.segments = append(t.segments, segment{text: lit})
		}
		rest = rest[open+1:]

		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return nil, fmt.Errorf("parse template %q: unclosed '{'", raw)
		}
		key := rest[:end]
		if key == "" {
			return nil, fmt.Errorf("parse template %q: empty placeholder", raw)
		}
		if strings.IndexByte(key, '{') >= 0 {
			return nil, fmt.Errorf("parse template %q: nested '{'", raw)
		}
		t.segments = append(t.segments, segment{text: key, placeholder: true})
		rest = rest[end+1:]
	}

	return t, nil
}

// MustParse is Parse for compile-time-constant templates; it panics on error.
func MustParse(raw string) *Template {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Render substitutes every placeholder from values. A placeholder absent
// from the map is a render error; the template keeps working on the next
// call with a complete value set.
func (t *Template) Render(values map[string]int) (string, error) {
	var b strings.Builder
	for _, s := range t.segments {
		if !s.placeholder {
			b.WriteString(s.text)
			continue
		}
		v, ok := values[s.text]
		if !ok {
			return "", fmt.Errorf("render template %q: unknown placeholder {%s}", t.raw, s.text)
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String(), nil
}

// Keys returns the distinct placeholder names in first-appearance order.
func (t *Template) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, s := range t.segments {
		if s.placeholder && !seen[s.text] {
			seen[s.text] = true
			keys = append(keys, s.text)
		}
	}
	return keys
}

// String returns the original template source.
func (t *Template) String() string {
	return t.raw
}
