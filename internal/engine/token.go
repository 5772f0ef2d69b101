package engine

import (
	"io"
)

// Kind represents token kinds from a JSON source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token represents a streaming token. Offset is the input byte offset just
// past the token, or -1 when the source cannot tell.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
	Offset int64
}

// TokenSource is a minimal interface required by the engine.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

type nodeKind int

const (
	nodeObject nodeKind = iota
	nodeArray
	nodeString
	nodeNumber
	nodeBool
	nodeNull
)

func (k nodeKind) String() string {
	switch k {
	case nodeObject:
		return "object"
	case nodeArray:
		return "array"
	case nodeString:
		return "string"
	case nodeNumber:
		return "number"
	case nodeBool:
		return "bool"
	default:
		return "null"
	}
}

// node is a decoded JSON value that keeps object member order.
type node struct {
	kind    nodeKind
	text    string // string value or number literal
	b       bool
	members []member
	items   []*node
	off     int64 // input offset just past the value's first token
}

type member struct {
	key    string
	keyOff int64
	val    *node
}

// decodeNode builds a node tree from the token source.
func decodeNode(src TokenSource) (*node, error) {
	tok, err := src.NextToken()
	if err != nil {
		return nil, err
	}
	return decodeValue(src, tok)
}

func decodeValue(src TokenSource, tok Token) (*node, error) {
	switch tok.Kind {
	case KindBeginObject:
		return decodeObject(src, tok.Offset)
	case KindBeginArray:
		return decodeArray(src, tok.Offset)
	case KindString:
		return &node{kind: nodeString, text: tok.String, off: tok.Offset}, nil
	case KindNumber:
		return &node{kind: nodeNumber, text: tok.Number, off: tok.Offset}, nil
	case KindBool:
		return &node{kind: nodeBool, b: tok.Bool, off: tok.Offset}, nil
	case KindNull:
		return &node{kind: nodeNull, off: tok.Offset}, nil
	default:
		return nil, io.ErrUnexpectedEOF
	}
}

func decodeObject(src TokenSource, off int64) (*node, error) {
	n := &node{kind: nodeObject, off: off}
	for {
		tok, err := src.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndObject {
			return n, nil
		}
		if tok.Kind != KindKey {
			return nil, io.ErrUnexpectedEOF
		}
		vt, err := src.NextToken()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(src, vt)
		if err != nil {
			return nil, err
		}
		n.members = append(n.members, member{key: tok.String, keyOff: tok.Offset, val: v})
	}
}

func decodeArray(src TokenSource, off int64) (*node, error) {
	n := &node{kind: nodeArray, off: off}
	for {
		tok, err := src.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndArray {
			return n, nil
		}
		v, err := decodeValue(src, tok)
		if err != nil {
			return nil, err
		}
		n.items = append(n.items, v)
	}
}
