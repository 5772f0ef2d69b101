package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// BaseType enumerates the wire-level kinds of a field.
type BaseType int

const (
	BaseNone BaseType = iota
	BaseBool
	BaseInt8
	BaseUint8
	BaseInt16
	BaseUint16
	BaseInt32
	BaseUint32
	BaseInt64
	BaseUint64
	BaseFloat32
	BaseFloat64
	BaseString
	BaseVector
	BaseStruct
	BaseTable
)

var scalarNames = map[string]BaseType{
	"bool":    BaseBool,
	"byte":    BaseInt8,
	"int8":    BaseInt8,
	"ubyte":   BaseUint8,
	"uint8":   BaseUint8,
	"short":   BaseInt16,
	"int16":   BaseInt16,
	"ushort":  BaseUint16,
	"uint16":  BaseUint16,
	"int":     BaseInt32,
	"int32":   BaseInt32,
	"uint":    BaseUint32,
	"uint32":  BaseUint32,
	"long":    BaseInt64,
	"int64":   BaseInt64,
	"ulong":   BaseUint64,
	"uint64":  BaseUint64,
	"float":   BaseFloat32,
	"float32": BaseFloat32,
	"double":  BaseFloat64,
	"float64": BaseFloat64,
}

func (b BaseType) String() string {
	switch b {
	case BaseBool:
		return "bool"
	case BaseInt8:
		return "byte"
	case BaseUint8:
		return "ubyte"
	case BaseInt16:
		return "short"
	case BaseUint16:
		return "ushort"
	case BaseInt32:
		return "int"
	case BaseUint32:
		return "uint"
	case BaseInt64:
		return "long"
	case BaseUint64:
		return "ulong"
	case BaseFloat32:
		return "float"
	case BaseFloat64:
		return "double"
	case BaseString:
		return "string"
	case BaseVector:
		return "vector"
	case BaseStruct:
		return "struct"
	case BaseTable:
		return "table"
	default:
		return "none"
	}
}

// Size is the inline byte size of a value of this kind. Offset kinds occupy
// one uoffset inline.
func (b BaseType) Size() int {
	switch b {
	case BaseBool, BaseInt8, BaseUint8:
		return 1
	case BaseInt16, BaseUint16:
		return 2
	case BaseInt32, BaseUint32, BaseFloat32:
		return 4
	case BaseInt64, BaseUint64, BaseFloat64:
		return 8
	case BaseString, BaseVector, BaseTable:
		return 4
	default:
		return 0
	}
}

func (b BaseType) IsScalar() bool   { return b >= BaseBool && b <= BaseFloat64 }
func (b BaseType) IsFloat() bool    { return b == BaseFloat32 || b == BaseFloat64 }
func (b BaseType) IsUnsigned() bool { return b == BaseUint8 || b == BaseUint16 || b == BaseUint32 || b == BaseUint64 }
func (b BaseType) IsSigned() bool   { return b == BaseInt8 || b == BaseInt16 || b == BaseInt32 || b == BaseInt64 }

// Type describes a field type. For vectors, Elem holds the element kind and
// Def/Enum describe the element.
type Type struct {
	Base BaseType
	Elem BaseType
	Def  *StructDef
	Enum *EnumDef

	ref string // unresolved type name
}

// elemType returns the type of a vector element.
func (t Type) elemType() Type {
	return Type{Base: t.Elem, Def: t.Def, Enum: t.Enum}
}

// Value holds a decoded scalar. Signed kinds use Int, unsigned kinds and bool
// use Uint, floating kinds use Float.
type Value struct {
	Int   int64
	Uint  uint64
	Float float64
}

// Field is one member of a table or struct.
type Field struct {
	Name       string
	Type       Type
	ID         int
	Default    Value
	Optional   bool
	Deprecated bool
	Required   bool

	// struct layout
	Offset  int
	Padding int

	defaultLit string
	line       int
}

// Slot returns the vtable byte offset of the field.
func (f *Field) Slot() int { return 4 + 2*f.ID }

// StructDef describes a table (Fixed == false) or a struct (Fixed == true).
type StructDef struct {
	Name      string
	Namespace string
	Fixed     bool
	Fields    []*Field
	MinAlign  int
	ByteSize  int
	File      string

	byName   map[string]*Field
	maxID    int
	laidOut  bool
	inLayout bool
}

// FullName returns the namespace-qualified type name.
func (s *StructDef) FullName() string { return qualify(s.Namespace, s.Name) }

// FieldByName looks up a field by its schema name.
func (s *StructDef) FieldByName(name string) *Field { return s.byName[name] }

// EnumVal is one named enum constant.
type EnumVal struct {
	Name  string
	Value int64
}

// EnumDef describes an enum over an integer kind.
type EnumDef struct {
	Name       string
	Namespace  string
	Underlying BaseType
	Vals       []*EnumVal
}

// FullName returns the namespace-qualified enum name.
func (e *EnumDef) FullName() string { return qualify(e.Namespace, e.Name) }

// ByName finds an enum constant.
func (e *EnumDef) ByName(name string) (*EnumVal, bool) {
	for _, v := range e.Vals {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// ByValue finds the first enum constant with the given value.
func (e *EnumDef) ByValue(v int64) (*EnumVal, bool) {
	for _, ev := range e.Vals {
		if ev.Value == v {
			return ev, true
		}
	}
	return nil, false
}

func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "." + name
}

// parseScalar converts literal text into a Value for the given kind. Enum
// constant names are accepted when enum is non-nil.
func parseScalar(base BaseType, lit string, enum *EnumDef) (Value, string, error) {
	if enum != nil {
		if ev, ok := enum.ByName(lit); ok {
			return intValue(base, ev.Value), "", nil
		}
	}
	switch {
	case base == BaseBool:
		switch lit {
		case "true", "1":
			return Value{Uint: 1}, "", nil
		case "false", "0":
			return Value{}, "", nil
		}
		return Value{}, CodeInvalidType, fmt.Errorf("expected bool, got '%s'", lit)
	case base.IsFloat():
		bits := 64
		if base == BaseFloat32 {
			bits = 32
		}
		f, err := strconv.ParseFloat(lit, bits)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return Value{}, CodeOverflow, fmt.Errorf("constant does not fit in %s: %s", base, lit)
			}
			return Value{}, CodeInvalidType, fmt.Errorf("expected %s, got '%s'", base, lit)
		}
		return Value{Float: f}, "", nil
	case base.IsUnsigned():
		u, err := strconv.ParseUint(lit, 0, base.Size()*8)
		if err != nil {
			return Value{}, numErrCode(err), fmt.Errorf("expected %s, got '%s'", base, lit)
		}
		return Value{Uint: u}, "", nil
	case base.IsSigned():
		i, err := strconv.ParseInt(lit, 0, base.Size()*8)
		if err != nil {
			return Value{}, numErrCode(err), fmt.Errorf("expected %s, got '%s'", base, lit)
		}
		return Value{Int: i}, "", nil
	}
	return Value{}, CodeInvalidType, fmt.Errorf("'%s' is not a scalar", lit)
}

func intValue(base BaseType, v int64) Value {
	if base.IsUnsigned() {
		return Value{Uint: uint64(v)}
	}
	return Value{Int: v}
}

func numErrCode(err error) string {
	if errors.Is(err, strconv.ErrRange) {
		return CodeOverflow
	}
	return CodeInvalidType
}

// formatScalar renders v as JSON text. Enum values print as quoted names when
// a matching constant exists.
func formatScalar(base BaseType, v Value, enum *EnumDef) string {
	if enum != nil {
		iv := v.Int
		if base.IsUnsigned() {
			iv = int64(v.Uint)
		}
		if ev, ok := enum.ByValue(iv); ok {
			return quoteJSON(ev.Name)
		}
	}
	switch {
	case base == BaseBool:
		if v.Uint != 0 {
			return "true"
		}
		return "false"
	case base.IsFloat():
		bits := 64
		if base == BaseFloat32 {
			bits = 32
		}
		switch {
		case math.IsNaN(v.Float):
			return `"nan"`
		case math.IsInf(v.Float, 1):
			return `"inf"`
		case math.IsInf(v.Float, -1):
			return `"-inf"`
		}
		return strconv.FormatFloat(v.Float, 'g', -1, bits)
	case base.IsUnsigned():
		return strconv.FormatUint(v.Uint, 10)
	default:
		return strconv.FormatInt(v.Int, 10)
	}
}

