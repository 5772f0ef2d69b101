package engine

import (
	"strconv"

	flatbuffers "github.com/google/flatbuffers/go"
)

const (
	defaultMaxTables = 1000000
	maxBufferSize    = 1<<31 - 1

	fileIdentifierLength = 4
)

// verifier performs a bounds-checked walk over a buffer. It never reads
// outside buf.
type verifier struct {
	buf       []byte
	depth     int
	maxDepth  int
	tables    int
	maxTables int
}

func (v *verifier) fail(path, format string, args ...any) error {
	return issuef(CodeVerification, path, format, args...)
}

func (v *verifier) inRange(pos, size int) bool {
	return pos >= 0 && size >= 0 && pos <= len(v.buf) && size <= len(v.buf)-pos
}

func (v *verifier) check(pos, size, align int, path, what string) error {
	if !v.inRange(pos, size) {
		return v.fail(path, "%s out of range at %d", what, pos)
	}
	if align > 1 && pos%align != 0 {
		return v.fail(path, "%s misaligned at %d", what, pos)
	}
	return nil
}

func (v *verifier) verifyRoot(root *StructDef, fileIdent string) error {
	if len(v.buf) == 0 {
		return v.fail("", "empty buffer")
	}
	if len(v.buf) > maxBufferSize {
		return v.fail("", "buffer exceeds maximum size")
	}
	min := flatbuffers.SizeUOffsetT
	if fileIdent != "" {
		min += fileIdentifierLength
	}
	if len(v.buf) < min {
		return v.fail("", "buffer too small: %d bytes", len(v.buf))
	}
	if fileIdent != "" {
		got := string(v.buf[flatbuffers.SizeUOffsetT : flatbuffers.SizeUOffsetT+fileIdentifierLength])
		if got != fileIdent {
			return v.fail("", "file identifier mismatch: want %q, got %q", fileIdent, got)
		}
	}
	pos, err := v.offset(0, "")
	if err != nil {
		return err
	}
	return v.table(root, pos, "")
}

// offset follows the uoffset stored at pos and returns its target.
func (v *verifier) offset(pos int, path string) (int, error) {
	if err := v.check(pos, flatbuffers.SizeUOffsetT, flatbuffers.SizeUOffsetT, path, "offset"); err != nil {
		return 0, err
	}
	o := flatbuffers.GetUOffsetT(v.buf[pos:])
	if o == 0 || o > maxBufferSize {
		return 0, v.fail(path, "invalid offset %d at %d", o, pos)
	}
	target := pos + int(o)
	if !v.inRange(target, 1) {
		return 0, v.fail(path, "offset target out of range at %d", pos)
	}
	return target, nil
}

func (v *verifier) table(sd *StructDef, pos int, path string) error {
	v.depth++
	defer func() { v.depth-- }()
	if v.depth > v.maxDepth {
		return v.fail(path, "maximum depth %d exceeded", v.maxDepth)
	}
	v.tables++
	if v.tables > v.maxTables {
		return v.fail(path, "maximum table count exceeded")
	}

	if err := v.check(pos, flatbuffers.SizeSOffsetT, flatbuffers.SizeSOffsetT, path, "table"); err != nil {
		return err
	}
	vt := pos - int(flatbuffers.GetSOffsetT(v.buf[pos:]))
	if err := v.check(vt, flatbuffers.SizeVOffsetT, flatbuffers.SizeVOffsetT, path, "vtable"); err != nil {
		return err
	}
	vsize := int(flatbuffers.GetVOffsetT(v.buf[vt:]))
	if vsize < 4 || vsize%2 != 0 || !v.inRange(vt, vsize) {
		return v.fail(path, "invalid vtable size %d", vsize)
	}
	tsize := int(flatbuffers.GetVOffsetT(v.buf[vt+2:]))
	if !v.inRange(pos, tsize) {
		return v.fail(path, "table size %d out of range", tsize)
	}

	for _, f := range sd.Fields {
		fpath := joinJSONPointer(path, f.Name)
		off := 0
		if slot := f.Slot(); slot+2 <= vsize {
			off = int(flatbuffers.GetVOffsetT(v.buf[vt+slot:]))
		}
		if off == 0 {
			if f.Required {
				return v.fail(fpath, "required field is missing: %s", f.Name)
			}
			continue
		}
		if err := v.field(f, pos+off, off, tsize, fpath); err != nil {
			return err
		}
	}
	return nil
}

func (v *verifier) field(f *Field, fpos, off, tsize int, path string) error {
	t := f.Type
	inline := t.Base.Size()
	align := inline
	if t.Base == BaseStruct {
		inline, align = t.Def.ByteSize, t.Def.MinAlign
	}
	if off+inline > tsize {
		return v.fail(path, "field %s exceeds table bounds", f.Name)
	}
	if err := v.check(fpos, inline, align, path, "field"); err != nil {
		return err
	}
	switch t.Base {
	case BaseString:
		target, err := v.offset(fpos, path)
		if err != nil {
			return err
		}
		return v.str(target, path)
	case BaseTable:
		target, err := v.offset(fpos, path)
		if err != nil {
			return err
		}
		return v.table(t.Def, target, path)
	case BaseVector:
		target, err := v.offset(fpos, path)
		if err != nil {
			return err
		}
		return v.vector(t.elemType(), target, path)
	}
	return nil
}

func (v *verifier) str(pos int, path string) error {
	if err := v.check(pos, flatbuffers.SizeUOffsetT, flatbuffers.SizeUOffsetT, path, "string"); err != nil {
		return err
	}
	n := int(flatbuffers.GetUOffsetT(v.buf[pos:]))
	start := pos + flatbuffers.SizeUOffsetT
	if !v.inRange(start, n+1) {
		return v.fail(path, "string length %d out of range", n)
	}
	if v.buf[start+n] != 0 {
		return v.fail(path, "string is not NUL terminated")
	}
	return nil
}

func (v *verifier) vector(elem Type, pos int, path string) error {
	if err := v.check(pos, flatbuffers.SizeUOffsetT, flatbuffers.SizeUOffsetT, path, "vector"); err != nil {
		return err
	}
	n := uint64(flatbuffers.GetUOffsetT(v.buf[pos:]))
	size := uint64(elem.Base.Size())
	if elem.Base == BaseStruct {
		size = uint64(elem.Def.ByteSize)
	}
	start := pos + flatbuffers.SizeUOffsetT
	if n*size > maxBufferSize || !v.inRange(start, int(n*size)) {
		return v.fail(path, "vector of %d elements out of range", n)
	}
	if elem.Base != BaseString && elem.Base != BaseTable {
		return nil
	}
	for i := 0; i < int(n); i++ {
		ipath := joinJSONPointer(path, strconv.Itoa(i))
		target, err := v.offset(start+i*flatbuffers.SizeUOffsetT, ipath)
		if err != nil {
			return err
		}
		if elem.Base == BaseString {
			err = v.str(target, ipath)
		} else {
			err = v.table(elem.Def, target, ipath)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
