package engine

import (
	"sort"
	"strconv"

	flatbuffers "github.com/google/flatbuffers/go"
)

// bufferBuilder serializes a decoded JSON tree into a flatbuffers.Builder.
// Children (strings, vectors, sub-tables) are created before their parent
// object is started, as the builder requires.
type bufferBuilder struct {
	b *flatbuffers.Builder
	p *Parser
}

type slotValue struct {
	field *Field
	off   flatbuffers.UOffsetT
	val   Value
	st    *structValue
}

func (s slotValue) align() int {
	switch s.field.Type.Base {
	case BaseStruct:
		return s.field.Type.Def.MinAlign
	default:
		return s.field.Type.Base.Size()
	}
}

type structValue struct {
	def    *StructDef
	vals   []Value
	nested []*structValue
}

func (bb *bufferBuilder) table(sd *StructDef, n *node, path string, depth int) (flatbuffers.UOffsetT, error) {
	if n.kind != nodeObject {
		return 0, issueAt(CodeInvalidType, path, n.off, "expected object for %s, got %s", sd, n.kind)
	}
	if depth >= bb.p.maxDepth() {
		return 0, issueAt(CodeParseError, path, n.off, "maximum nesting depth %d exceeded", bb.p.maxDepth())
	}
	slots := make([]slotValue, 0, len(n.members))
	seen := make(map[*Field]bool, len(n.members))
	for _, m := range n.members {
		fpath := joinJSONPointer(path, m.key)
		f := sd.FieldByName(m.key)
		if f == nil {
			return 0, issueAt(CodeUnknownKey, fpath, m.keyOff, "unknown field: %s in %s", m.key, sd)
		}
		if f.Deprecated {
			return 0, issueAt(CodeUnknownKey, fpath, m.keyOff, "field is deprecated: %s in %s", m.key, sd)
		}
		if m.val.kind == nodeNull {
			continue
		}
		seen[f] = true
		sv := slotValue{field: f}
		var err error
		switch f.Type.Base {
		case BaseString:
			if m.val.kind != nodeString {
				return 0, issueAt(CodeInvalidType, fpath, m.val.off, "expected string for field %s, got %s", f.Name, m.val.kind)
			}
			sv.off = bb.b.CreateString(m.val.text)
		case BaseVector:
			sv.off, err = bb.vector(f.Type, m.val, fpath, depth)
		case BaseTable:
			sv.off, err = bb.table(f.Type.Def, m.val, fpath, depth+1)
		case BaseStruct:
			sv.st, err = bb.structValue(f.Type.Def, m.val, fpath)
		default:
			sv.val, err = bb.scalar(f.Type, m.val, fpath)
		}
		if err != nil {
			return 0, err
		}
		slots = append(slots, sv)
	}
	for _, f := range sd.Fields {
		if f.Required && !seen[f] {
			return 0, issueAt(CodeRequired, joinJSONPointer(path, f.Name), n.off, "required field is missing: %s in %s", f.Name, sd)
		}
	}

	// largest alignment first keeps padding low
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].align() > slots[j].align() })

	b := bb.b
	b.StartObject(sd.maxID + 1)
	for _, s := range slots {
		f := s.field
		switch f.Type.Base {
		case BaseString, BaseVector, BaseTable:
			b.PrependUOffsetTSlot(f.ID, s.off, 0)
		case BaseStruct:
			bb.writeStruct(s.st)
			b.PrependStructSlot(f.ID, b.Offset(), 0)
		default:
			if f.Optional {
				bb.prepend(f.Type.Base, s.val)
				b.Slot(f.ID)
			} else {
				bb.scalarSlot(f.ID, f.Type.Base, s.val, f.Default)
			}
		}
	}
	return b.EndObject(), nil
}

func (bb *bufferBuilder) vector(t Type, n *node, path string, depth int) (flatbuffers.UOffsetT, error) {
	if n.kind != nodeArray {
		return 0, issueAt(CodeInvalidType, path, n.off, "expected array, got %s", n.kind)
	}
	elem := t.elemType()
	count := len(n.items)
	b := bb.b
	switch elem.Base {
	case BaseString, BaseTable:
		offs := make([]flatbuffers.UOffsetT, count)
		for i, it := range n.items {
			ipath := joinJSONPointer(path, strconv.Itoa(i))
			if elem.Base == BaseString {
				if it.kind != nodeString {
					return 0, issueAt(CodeInvalidType, ipath, it.off, "expected string, got %s", it.kind)
				}
				offs[i] = b.CreateString(it.text)
				continue
			}
			off, err := bb.table(elem.Def, it, ipath, depth+1)
			if err != nil {
				return 0, err
			}
			offs[i] = off
		}
		b.StartVector(flatbuffers.SizeUOffsetT, count, flatbuffers.SizeUOffsetT)
		for i := count - 1; i >= 0; i-- {
			b.PrependUOffsetT(offs[i])
		}
		return b.EndVector(count), nil
	case BaseStruct:
		vals := make([]*structValue, count)
		for i, it := range n.items {
			sv, err := bb.structValue(elem.Def, it, joinJSONPointer(path, strconv.Itoa(i)))
			if err != nil {
				return 0, err
			}
			vals[i] = sv
		}
		b.StartVector(elem.Def.ByteSize, count, elem.Def.MinAlign)
		for i := count - 1; i >= 0; i-- {
			bb.writeStruct(vals[i])
		}
		return b.EndVector(count), nil
	default:
		vals := make([]Value, count)
		for i, it := range n.items {
			v, err := bb.scalar(elem, it, joinJSONPointer(path, strconv.Itoa(i)))
			if err != nil {
				return 0, err
			}
			vals[i] = v
		}
		size := elem.Base.Size()
		b.StartVector(size, count, size)
		for i := count - 1; i >= 0; i-- {
			bb.prepend(elem.Base, vals[i])
		}
		return b.EndVector(count), nil
	}
}

func (bb *bufferBuilder) structValue(def *StructDef, n *node, path string) (*structValue, error) {
	if n.kind != nodeObject {
		return nil, issueAt(CodeInvalidType, path, n.off, "expected object for %s, got %s", def, n.kind)
	}
	byKey := make(map[string]*node, len(n.members))
	for _, m := range n.members {
		if def.FieldByName(m.key) == nil {
			return nil, issueAt(CodeUnknownKey, joinJSONPointer(path, m.key), m.keyOff, "unknown field: %s in %s", m.key, def)
		}
		byKey[m.key] = m.val
	}
	sv := &structValue{def: def, vals: make([]Value, len(def.Fields)), nested: make([]*structValue, len(def.Fields))}
	for i, f := range def.Fields {
		fpath := joinJSONPointer(path, f.Name)
		v, ok := byKey[f.Name]
		if !ok || v.kind == nodeNull {
			return nil, issueAt(CodeRequired, fpath, n.off, "struct field is missing: %s in %s", f.Name, def)
		}
		var err error
		if f.Type.Base == BaseStruct {
			sv.nested[i], err = bb.structValue(f.Type.Def, v, fpath)
		} else {
			sv.vals[i], err = bb.scalar(f.Type, v, fpath)
		}
		if err != nil {
			return nil, err
		}
	}
	return sv, nil
}

func (bb *bufferBuilder) writeStruct(sv *structValue) {
	def := sv.def
	bb.b.Prep(def.MinAlign, def.ByteSize)
	for i := len(def.Fields) - 1; i >= 0; i-- {
		f := def.Fields[i]
		bb.b.Pad(f.Padding)
		if f.Type.Base == BaseStruct {
			bb.writeStruct(sv.nested[i])
		} else {
			bb.prepend(f.Type.Base, sv.vals[i])
		}
	}
}

func (bb *bufferBuilder) scalar(t Type, n *node, path string) (Value, error) {
	var lit string
	switch n.kind {
	case nodeBool:
		if t.Base != BaseBool {
			return Value{}, issueAt(CodeInvalidType, path, n.off, "expected %s, got bool", t.Base)
		}
		if n.b {
			return Value{Uint: 1}, nil
		}
		return Value{}, nil
	case nodeNumber:
		lit = n.text
	case nodeString:
		lit = n.text
	default:
		return Value{}, issueAt(CodeInvalidType, path, n.off, "expected %s, got %s", t.Base, n.kind)
	}
	v, code, err := parseScalar(t.Base, lit, t.Enum)
	if err != nil {
		if t.Enum != nil && n.kind == nodeString && code == CodeInvalidType {
			return Value{}, issueAt(CodeInvalidType, path, n.off, "unknown enum value '%s' for %s", lit, t.Enum.FullName())
		}
		return Value{}, issueAt(code, path, n.off, "%v", err)
	}
	return v, nil
}

func (bb *bufferBuilder) prepend(base BaseType, v Value) {
	b := bb.b
	switch base {
	case BaseBool:
		b.PrependBool(v.Uint != 0)
	case BaseInt8:
		b.PrependInt8(int8(v.Int))
	case BaseUint8:
		b.PrependUint8(uint8(v.Uint))
	case BaseInt16:
		b.PrependInt16(int16(v.Int))
	case BaseUint16:
		b.PrependUint16(uint16(v.Uint))
	case BaseInt32:
		b.PrependInt32(int32(v.Int))
	case BaseUint32:
		b.PrependUint32(uint32(v.Uint))
	case BaseInt64:
		b.PrependInt64(v.Int)
	case BaseUint64:
		b.PrependUint64(v.Uint)
	case BaseFloat32:
		b.PrependFloat32(float32(v.Float))
	case BaseFloat64:
		b.PrependFloat64(v.Float)
	}
}

// scalarSlot writes a table scalar, eliding it when equal to the default.
func (bb *bufferBuilder) scalarSlot(slot int, base BaseType, v, d Value) {
	b := bb.b
	switch base {
	case BaseBool:
		b.PrependBoolSlot(slot, v.Uint != 0, d.Uint != 0)
	case BaseInt8:
		b.PrependInt8Slot(slot, int8(v.Int), int8(d.Int))
	case BaseUint8:
		b.PrependUint8Slot(slot, uint8(v.Uint), uint8(d.Uint))
	case BaseInt16:
		b.PrependInt16Slot(slot, int16(v.Int), int16(d.Int))
	case BaseUint16:
		b.PrependUint16Slot(slot, uint16(v.Uint), uint16(d.Uint))
	case BaseInt32:
		b.PrependInt32Slot(slot, int32(v.Int), int32(d.Int))
	case BaseUint32:
		b.PrependUint32Slot(slot, uint32(v.Uint), uint32(d.Uint))
	case BaseInt64:
		b.PrependInt64Slot(slot, v.Int, d.Int)
	case BaseUint64:
		b.PrependUint64Slot(slot, v.Uint, d.Uint)
	case BaseFloat32:
		b.PrependFloat32Slot(slot, float32(v.Float), float32(d.Float))
	case BaseFloat64:
		b.PrependFloat64Slot(slot, v.Float, d.Float)
	}
}
