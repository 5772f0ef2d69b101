package engine

import (
	"strings"

	flatbuffers "github.com/google/flatbuffers/go"
)

// textWriter renders buffer contents as JSON text following Opts. Reads are
// not bounds-checked beyond Go's own slice checks; callers recover. Nesting
// and the number of tables visited are bounded so that cyclic offsets end in
// a panic instead of unbounded recursion.
type textWriter struct {
	sb        strings.Builder
	opts      Opts
	maxDepth  int
	nest      int
	tables    int
	maxTables int
}

func (w *textWriter) newline(depth int) {
	if w.opts.IndentStep < 0 {
		return
	}
	w.sb.WriteByte('\n')
	w.sb.WriteString(strings.Repeat(" ", depth*w.opts.IndentStep))
}

func (w *textWriter) key(name string) {
	if w.opts.StrictJSON {
		w.sb.WriteString(quoteJSON(name))
	} else {
		w.sb.WriteString(name)
	}
	w.sb.WriteByte(':')
	if w.opts.IndentStep >= 0 {
		w.sb.WriteByte(' ')
	}
}

func (w *textWriter) table(sd *StructDef, buf []byte, pos flatbuffers.UOffsetT, depth int) {
	if w.nest >= w.maxDepth {
		panic(issuef(CodeVerification, "", "maximum nesting depth %d exceeded", w.maxDepth))
	}
	w.nest++
	defer func() { w.nest-- }()
	w.tables++
	if w.tables > w.maxTables {
		panic(issuef(CodeVerification, "", "too many tables (limit %d)", w.maxTables))
	}
	tab := flatbuffers.Table{Bytes: buf, Pos: pos}
	w.sb.WriteByte('{')
	n := 0
	for _, f := range sd.Fields {
		if f.Deprecated {
			continue
		}
		off := tab.Offset(flatbuffers.VOffsetT(f.Slot()))
		if off == 0 && (!f.Type.Base.IsScalar() || f.Optional || !w.opts.OutputDefaultScalars) {
			continue
		}
		if n > 0 {
			w.sb.WriteByte(',')
		}
		n++
		w.newline(depth + 1)
		w.key(f.Name)
		if off == 0 {
			w.sb.WriteString(formatScalar(f.Type.Base, f.Default, f.Type.Enum))
			continue
		}
		w.value(f.Type, buf, pos+flatbuffers.UOffsetT(off), depth+1)
	}
	if n > 0 {
		w.newline(depth)
	}
	w.sb.WriteByte('}')
}

func (w *textWriter) structAt(def *StructDef, buf []byte, pos flatbuffers.UOffsetT, depth int) {
	w.sb.WriteByte('{')
	for i, f := range def.Fields {
		if i > 0 {
			w.sb.WriteByte(',')
		}
		w.newline(depth + 1)
		w.key(f.Name)
		w.value(f.Type, buf, pos+flatbuffers.UOffsetT(f.Offset), depth+1)
	}
	w.newline(depth)
	w.sb.WriteByte('}')
}

func (w *textWriter) vector(elem Type, buf []byte, pos flatbuffers.UOffsetT, depth int) {
	n := flatbuffers.GetUOffsetT(buf[pos:])
	start := pos + flatbuffers.SizeUOffsetT
	size := flatbuffers.UOffsetT(elem.Base.Size())
	if elem.Base == BaseStruct {
		size = flatbuffers.UOffsetT(elem.Def.ByteSize)
	}
	w.sb.WriteByte('[')
	for i := flatbuffers.UOffsetT(0); i < n; i++ {
		if i > 0 {
			w.sb.WriteByte(',')
		}
		w.newline(depth + 1)
		w.value(elem, buf, start+i*size, depth+1)
	}
	if n > 0 {
		w.newline(depth)
	}
	w.sb.WriteByte(']')
}

func (w *textWriter) value(t Type, buf []byte, pos flatbuffers.UOffsetT, depth int) {
	switch t.Base {
	case BaseString:
		w.sb.WriteString(quoteJSON(readString(buf, indirect(buf, pos))))
	case BaseTable:
		w.table(t.Def, buf, indirect(buf, pos), depth)
	case BaseStruct:
		w.structAt(t.Def, buf, pos, depth)
	case BaseVector:
		w.vector(t.elemType(), buf, indirect(buf, pos), depth)
	default:
		w.sb.WriteString(formatScalar(t.Base, readScalar(buf, pos, t.Base), t.Enum))
	}
}

// indirect follows the forward offset stored at pos. Targets past the end of
// buf, including ones that would wrap around uint32, panic.
func indirect(buf []byte, pos flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	target := uint64(pos) + uint64(flatbuffers.GetUOffsetT(buf[pos:]))
	if target >= uint64(len(buf)) {
		panic(issuef(CodeVerification, "", "offset out of range at %d", pos))
	}
	return flatbuffers.UOffsetT(target)
}

func readString(buf []byte, pos flatbuffers.UOffsetT) string {
	n := flatbuffers.GetUOffsetT(buf[pos:])
	start := pos + flatbuffers.SizeUOffsetT
	return string(buf[start : start+n])
}

func readScalar(buf []byte, pos flatbuffers.UOffsetT, base BaseType) Value {
	b := buf[pos:]
	switch base {
	case BaseBool:
		if flatbuffers.GetBool(b) {
			return Value{Uint: 1}
		}
		return Value{}
	case BaseInt8:
		return Value{Int: int64(flatbuffers.GetInt8(b))}
	case BaseUint8:
		return Value{Uint: uint64(flatbuffers.GetUint8(b))}
	case BaseInt16:
		return Value{Int: int64(flatbuffers.GetInt16(b))}
	case BaseUint16:
		return Value{Uint: uint64(flatbuffers.GetUint16(b))}
	case BaseInt32:
		return Value{Int: int64(flatbuffers.GetInt32(b))}
	case BaseUint32:
		return Value{Uint: uint64(flatbuffers.GetUint32(b))}
	case BaseInt64:
		return Value{Int: flatbuffers.GetInt64(b)}
	case BaseUint64:
		return Value{Uint: flatbuffers.GetUint64(b)}
	case BaseFloat32:
		return Value{Float: float64(flatbuffers.GetFloat32(b))}
	case BaseFloat64:
		return Value{Float: flatbuffers.GetFloat64(b)}
	}
	return Value{}
}
