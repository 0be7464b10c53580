package sink

import (
	"fmt"
	"strings"
)

// templateFields are the only names a script template may substitute,
// per spec §4.5.
var templateFields = map[string]bool{
	"id":          true,
	"application": true,
	"summary":     true,
	"body":        true,
	"category":    true,
	"urgency":     true,
}

// segment is one piece of a parsed template: either a literal run of
// text or a named field to substitute at render time.
type segment struct {
	literal string
	field   string
	isField bool
}

// parseTemplate validates and compiles a single template token into a
// sequence of segments. `{{` and `}}` are the literal-brace escapes;
// `{name}` substitutes a known field; any other brace use — an unknown
// field name, an unmatched `{` or `}` — is a startup-time error.
func parseTemplate(raw string) ([]segment, error) {
	var segs []segment
	var literal strings.Builder

	flushLiteral := func() {
		if literal.Len() > 0 {
			segs = append(segs, segment{literal: literal.String()})
			literal.Reset()
		}
	}

	i := 0
	for i < len(raw) {
		c := raw[i]
		switch c {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				literal.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("sink: template %q has an unterminated '{'", raw)
			}
			name := raw[i+1 : i+1+end]
			if !templateFields[name] {
				return nil, fmt.Errorf("sink: template %q references unknown field %q", raw, name)
			}
			flushLiteral()
			segs = append(segs, segment{field: name, isField: true})
			i += 1 + end + 1
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				literal.WriteByte('}')
				i += 2
				continue
			}
			return nil, fmt.Errorf("sink: template %q has a raw, unescaped '}'", raw)
		default:
			literal.WriteByte(c)
			i++
		}
	}
	flushLiteral()
	return segs, nil
}

// render substitutes fields into a parsed template.
func render(segs []segment, fields map[string]string) string {
	var out strings.Builder
	for _, s := range segs {
		if s.isField {
			out.WriteString(fields[s.field])
		} else {
			out.WriteString(s.literal)
		}
	}
	return out.String()
}
