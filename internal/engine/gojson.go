package engine

import (
	"bytes"
	"errors"
	"io"
	"strconv"

	j "github.com/goccy/go-json"
)

type jsonFrame struct {
	kind         containerKind
	expectingKey bool
}

// gojsonSource is a TokenSource over a go-json Decoder.
type gojsonSource struct {
	dec   *j.Decoder
	stack []jsonFrame
}

// NewJSONSource wraps a byte slice into a TokenSource backed by go-json.
// Numbers are kept as their literal text.
func NewJSONSource(b []byte) TokenSource {
	dec := j.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return &gojsonSource{dec: dec}
}

func (s *gojsonSource) NextToken() (Token, error) {
	tok, err := s.dec.Token()
	if err != nil {
		if err == io.EOF {
			return Token{}, io.EOF
		}
		return Token{}, err
	}
	off := s.dec.InputOffset()
	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, jsonFrame{kind: kindObject, expectingKey: true})
			return Token{Kind: KindBeginObject, Offset: off}, nil
		case '}':
			s.pop()
			return Token{Kind: KindEndObject, Offset: off}, nil
		case '[':
			s.stack = append(s.stack, jsonFrame{kind: kindArray})
			return Token{Kind: KindBeginArray, Offset: off}, nil
		case ']':
			s.pop()
			return Token{Kind: KindEndArray, Offset: off}, nil
		}
	case string:
		if n := len(s.stack); n > 0 {
			top := &s.stack[n-1]
			if top.kind == kindObject && top.expectingKey {
				top.expectingKey = false
				return Token{Kind: KindKey, String: v, Offset: off}, nil
			}
		}
		s.valueDone()
		return Token{Kind: KindString, String: v, Offset: off}, nil
	case bool:
		s.valueDone()
		return Token{Kind: KindBool, Bool: v, Offset: off}, nil
	case j.Number:
		s.valueDone()
		return Token{Kind: KindNumber, Number: string(v), Offset: off}, nil
	case float64:
		s.valueDone()
		return Token{Kind: KindNumber, Number: strconv.FormatFloat(v, 'g', -1, 64), Offset: off}, nil
	}
	s.valueDone()
	return Token{Kind: KindNull, Offset: off}, nil
}

func (s *gojsonSource) pop() {
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
	s.valueDone()
}

func (s *gojsonSource) valueDone() {
	if n := len(s.stack); n > 0 {
		top := &s.stack[n-1]
		if top.kind == kindObject && !top.expectingKey {
			top.expectingKey = true
		}
	}
}

func (s *gojsonSource) Location() int64 { return s.dec.InputOffset() }

// checkSyntax reports a parse_error issue when data is not a single valid
// JSON document.
func checkSyntax(data []byte) error {
	if j.Valid(data) {
		return nil
	}
	var v any
	if err := j.Unmarshal(data, &v); err != nil {
		off := int64(-1)
		var se *j.SyntaxError
		if errors.As(err, &se) {
			off = se.Offset
		}
		return issueAt(CodeParseError, "", off, "invalid JSON: %v", err)
	}
	return issuef(CodeParseError, "", "invalid JSON")
}

// quoteJSON renders s as a JSON string literal. HTML characters are kept
// as they are.
func quoteJSON(s string) string {
	b, err := j.MarshalNoEscape(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return string(b)
}
