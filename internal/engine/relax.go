package engine

import (
	"bytes"
	"strconv"
	"strings"
)

// relaxJSON rewrites the lenient JSON dialect accepted in non-strict mode into
// strict JSON: bare identifiers become strings, comments are dropped, hex
// integers become decimal, single-quoted strings are requoted, and trailing
// commas before a closing bracket are removed. Double-quoted string literals
// are copied untouched.
func relaxJSON(src []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(src) + len(src)/8)
	pendingComma := false
	flush := func(c byte) {
		if pendingComma && c != '}' && c != ']' {
			out.WriteByte(',')
		}
		pendingComma = false
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			out.WriteByte(c)
			i++
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := bytes.Index(src[i+2:], []byte("*/"))
			if end < 0 {
				i = len(src)
			} else {
				i += end + 4
			}
		case c == ',':
			if pendingComma {
				// a doubled comma is a syntax error; keep it visible
				out.WriteByte(',')
			}
			pendingComma = true
			i++
		case c == '"':
			flush(c)
			end := scanString(src, i)
			out.Write(src[i:end])
			i = end
		case c == '\'':
			flush(c)
			i = requoteSingle(&out, src, i)
		case isIdentStart(c):
			flush(c)
			end := i
			for end < len(src) && isIdentPart(src[end]) {
				end++
			}
			word := string(src[i:end])
			switch word {
			case "true", "false", "null":
				out.WriteString(word)
			default:
				out.WriteString(strconv.Quote(word))
			}
			i = end
		case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
			flush(c)
			end := i + 1
			for end < len(src) && (isIdentPart(src[end]) || src[end] == '.' ||
				((src[end] == '-' || src[end] == '+') && (src[end-1] == 'e' || src[end-1] == 'E'))) {
				end++
			}
			out.WriteString(relaxNumber(string(src[i:end])))
			i = end
		default:
			flush(c)
			out.WriteByte(c)
			i++
		}
	}
	if pendingComma {
		out.WriteByte(',')
	}
	return out.Bytes()
}

// scanString returns the index just past the string literal starting at i.
func scanString(src []byte, i int) int {
	for k := i + 1; k < len(src); k++ {
		switch src[k] {
		case '\\':
			k++
		case '"':
			return k + 1
		}
	}
	return len(src)
}

// requoteSingle writes the single-quoted literal starting at i as a
// double-quoted one and returns the index just past it. Escaped single quotes
// lose their backslash and bare double quotes gain one.
func requoteSingle(out *bytes.Buffer, src []byte, i int) int {
	out.WriteByte('"')
	k := i + 1
	for ; k < len(src); k++ {
		switch c := src[k]; c {
		case '\\':
			if k+1 < len(src) && src[k+1] == '\'' {
				out.WriteByte('\'')
			} else if k+1 < len(src) {
				out.Write(src[k : k+2])
			} else {
				out.WriteByte(c)
			}
			k++
		case '"':
			out.WriteString(`\"`)
		case '\'':
			out.WriteByte('"')
			return k + 1
		default:
			out.WriteByte(c)
		}
	}
	// unterminated; leave it for the syntax check to reject
	return k
}

func relaxNumber(lit string) string {
	body := strings.TrimLeft(lit, "+-")
	if body != "" && isIdentStart(body[0]) {
		// nan, inf, -inf and friends are carried as strings
		return strconv.Quote(strings.TrimPrefix(lit, "+"))
	}
	lit = strings.TrimPrefix(lit, "+")
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		if v, err := strconv.ParseInt(lit, 0, 64); err == nil {
			return strconv.FormatInt(v, 10)
		}
		if v, err := strconv.ParseUint(lit, 0, 64); err == nil {
			return strconv.FormatUint(v, 10)
		}
	}
	return lit
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
