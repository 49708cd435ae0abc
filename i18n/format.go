package i18n

import (
	"fmt"
	"strings"
)

// Format replaces %name and %path.to.name markers in message with values
// from vars. Dotted names are looked up as a literal key first and then
// through nested maps. Unknown markers are left as they are; %% produces
// a single percent sign.
//
//	Format("This is %condition.", map[string]any{"condition": "fine"})
//	// "This is fine."
//	Format("This is even %deep.value.", map[string]any{"deep": map[string]any{"value": "better"}})
//	// "This is even better."
func Format(message string, vars map[string]any) string {
	if !strings.Contains(message, "%") {
		return message
	}

	var b strings.Builder
	b.Grow(len(message))

	for i := 0; i < len(message); {
		c := message[i]
		if c != '%' {
			b.WriteByte(c)
			i++
			continue
		}

		if i+1 < len(message) && message[i+1] == '%' {
			b.WriteByte('%')
			i += 2
			continue
		}

		name := scanPlaceholder(message[i+1:])
		if name == "" {
			b.WriteByte('%')
			i++
			continue
		}

		if value, ok := lookupVar(vars, name); ok {
			b.WriteString(fmt.Sprint(value))
		} else {
			b.WriteByte('%')
			b.WriteString(name)
		}
		i += 1 + len(name)
	}
	return b.String()
}

// scanPlaceholder returns the placeholder name at the start of s.
// A dot belongs to the name only when an identifier character follows it,
// so "%condition." ends before the full stop.
func scanPlaceholder(s string) string {
	end := 0
	for end < len(s) {
		if isIdentByte(s[end]) {
			end++
			continue
		}
		if s[end] == '.' && end > 0 && end+1 < len(s) && isIdentByte(s[end+1]) {
			end++
			continue
		}
		break
	}
	return s[:end]
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func lookupVar(vars map[string]any, name string) (any, bool) {
	if vars == nil {
		return nil, false
	}
	if v, ok := vars[name]; ok {
		return v, true
	}

	head, rest, found := strings.Cut(name, ".")
	if !found {
		return nil, false
	}
	switch next := vars[head].(type) {
	case map[string]any:
		return lookupVar(next, rest)
	case MessageMap:
		return lookupVar(next, rest)
	case map[string]string:
		v, ok := next[rest]
		return v, ok
	}
	return nil, false
}
