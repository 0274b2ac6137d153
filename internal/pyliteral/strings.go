package pyliteral

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DecodeString decodes the source text of a single Python string literal,
// prefix and quotes included. Formatted strings are rejected.
func DecodeString(text string) (string, error) {
	i := 0
	for i < len(text) && strings.ContainsRune("rRuUbBfF", rune(text[i])) {
		i++
	}
	prefix := strings.ToLower(text[:i])
	if strings.Contains(prefix, "f") {
		return "", fmt.Errorf("%w: formatted string", ErrNotLiteral)
	}
	rest := text[i:]

	var quote string
	switch {
	case strings.HasPrefix(rest, `"""`), strings.HasPrefix(rest, `'''`):
		quote = rest[:3]
	case strings.HasPrefix(rest, `"`), strings.HasPrefix(rest, `'`):
		quote = rest[:1]
	default:
		return "", fmt.Errorf("%w: malformed string %q", ErrNotLiteral, text)
	}
	if len(rest) < 2*len(quote) || !strings.HasSuffix(rest, quote) {
		return "", fmt.Errorf("%w: unterminated string %q", ErrNotLiteral, text)
	}
	body := rest[len(quote) : len(rest)-len(quote)]

	if strings.Contains(prefix, "r") {
		return body, nil
	}
	return unescape(body, strings.Contains(prefix, "b"))
}

func unescape(s string, isBytes bool) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case '\n':
			// line continuation
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(s[i:j], 8, 32)
			writeCode(&b, rune(n), isBytes)
			i = j - 1
		case 'x':
			n, err := hexEscape(s, i+1, 2)
			if err != nil {
				return "", err
			}
			writeCode(&b, n, isBytes)
			i += 2
		case 'u', 'U':
			if isBytes {
				b.WriteByte('\\')
				b.WriteByte(e)
				continue
			}
			width := 4
			if e == 'U' {
				width = 8
			}
			n, err := hexEscape(s, i+1, width)
			if err != nil {
				return "", err
			}
			if !utf8.ValidRune(n) {
				return "", fmt.Errorf("%w: invalid code point \\%c%s", ErrNotLiteral, e, s[i+1:i+1+width])
			}
			b.WriteRune(n)
			i += width
		default:
			// Unknown escapes (including \N{...}) are kept verbatim.
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String(), nil
}

func hexEscape(s string, start, width int) (rune, error) {
	if start+width > len(s) {
		return 0, fmt.Errorf("%w: truncated escape", ErrNotLiteral)
	}
	n, err := strconv.ParseUint(s[start:start+width], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad escape %q", ErrNotLiteral, s[start:start+width])
	}
	return rune(n), nil
}

func writeCode(b *strings.Builder, n rune, isBytes bool) {
	if isBytes {
		b.WriteByte(byte(n))
		return
	}
	b.WriteRune(n)
}
