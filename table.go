package flatjson

import (
	flatbuffers "github.com/google/flatbuffers/go"
)

// Table is a root for schemas without generated accessors, giving raw table
// access through flatbuffers.Table. It carries no type name, so
// GenerateTextFromRoot rejects it; use GenerateText or Text instead.
//
//	c, err := flatjson.NewCodec[flatjson.Table](modules)
type Table struct {
	tab flatbuffers.Table
}

func (t *Table) Init(buf []byte, i flatbuffers.UOffsetT) {
	t.tab.Bytes = buf
	t.tab.Pos = i
}

func (t *Table) Table() flatbuffers.Table { return t.tab }

// Has reports whether the field with the given id is present in the buffer.
func (t *Table) Has(id int) bool {
	return t.tab.Offset(fieldSlot(id)) != 0
}

// StringField returns the string field with the given id, or "" when absent.
func (t *Table) StringField(id int) string {
	if o := flatbuffers.UOffsetT(t.tab.Offset(fieldSlot(id))); o != 0 {
		return t.tab.String(o + t.tab.Pos)
	}
	return ""
}

func fieldSlot(id int) flatbuffers.VOffsetT {
	return flatbuffers.VOffsetT(4 + 2*id)
}
