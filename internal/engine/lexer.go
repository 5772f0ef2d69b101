package engine

import (
	"fmt"
	"strings"
)

type lexKind int

const (
	lexEOF lexKind = iota
	lexIdent
	lexString
	lexNumber
	lexPunct
)

type lexToken struct {
	kind lexKind
	text string
	line int
}

func (t lexToken) String() string {
	switch t.kind {
	case lexEOF:
		return "end of file"
	case lexString:
		return fmt.Sprintf("%q", t.text)
	default:
		return "'" + t.text + "'"
	}
}

// schemaLexer tokenizes schema source. Comments are skipped; numbers keep
// their literal text including sign.
type schemaLexer struct {
	src  string
	pos  int
	line int
}

func newSchemaLexer(src string) *schemaLexer {
	return &schemaLexer{src: src, line: 1}
}

func (l *schemaLexer) next() (lexToken, error) {
	if err := l.skipSpace(); err != nil {
		return lexToken{}, err
	}
	if l.pos >= len(l.src) {
		return lexToken{kind: lexEOF, line: l.line}, nil
	}
	start := l.pos
	c := l.src[l.pos]
	switch {
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return lexToken{kind: lexIdent, text: l.src[start:l.pos], line: l.line}, nil
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		l.pos++
		for l.pos < len(l.src) {
			d := l.src[l.pos]
			if isIdentPart(d) || d == '.' || ((d == '-' || d == '+') && (l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E')) {
				l.pos++
				continue
			}
			break
		}
		return lexToken{kind: lexNumber, text: l.src[start:l.pos], line: l.line}, nil
	case c == '"':
		var sb strings.Builder
		l.pos++
		for l.pos < len(l.src) {
			d := l.src[l.pos]
			switch d {
			case '"':
				l.pos++
				return lexToken{kind: lexString, text: sb.String(), line: l.line}, nil
			case '\n':
				return lexToken{}, fmt.Errorf("%d: unterminated string constant", l.line)
			case '\\':
				if l.pos+1 < len(l.src) {
					l.pos++
					sb.WriteByte(l.src[l.pos])
				}
			default:
				sb.WriteByte(d)
			}
			l.pos++
		}
		return lexToken{}, fmt.Errorf("%d: unterminated string constant", l.line)
	case strings.IndexByte("{}()[]:;,=.", c) >= 0:
		l.pos++
		return lexToken{kind: lexPunct, text: string(c), line: l.line}, nil
	}
	return lexToken{}, fmt.Errorf("%d: illegal character '%c'", l.line, c)
}

func (l *schemaLexer) skipSpace() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case strings.HasPrefix(l.src[l.pos:], "//"):
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return fmt.Errorf("%d: unterminated comment", l.line)
			}
			l.line += strings.Count(l.src[l.pos:l.pos+2+end], "\n")
			l.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}
