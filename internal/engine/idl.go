package engine

import (
	"fmt"
	pathpkg "path"
	"strconv"
	"strings"
)

// schemaParser parses one schema module into staging definitions that are
// committed to the Parser only when the whole module resolves.
type schemaParser struct {
	p    *Parser
	lex  *schemaLexer
	tok  lexToken
	file string
	ns   string

	structs []*StructDef
	enums   []*EnumDef
	local   map[string]any
	refs    []pendingRef

	rootName  string
	rootNS    string
	rootLine  int
	fileIdent string
}

type pendingRef struct {
	field *Field
	ns    string
}

func newSchemaParser(p *Parser, text, file string) *schemaParser {
	return &schemaParser{
		p:     p,
		lex:   newSchemaLexer(text),
		file:  file,
		local: make(map[string]any),
	}
}

func (sp *schemaParser) errorf(line int, format string, args ...any) error {
	return fmt.Errorf("%s:%d: error: %s", sp.file, line, fmt.Sprintf(format, args...))
}

func (sp *schemaParser) advance() error {
	t, err := sp.lex.next()
	if err != nil {
		return fmt.Errorf("%s:%w", sp.file, err)
	}
	sp.tok = t
	return nil
}

func (sp *schemaParser) is(text string) bool {
	return (sp.tok.kind == lexPunct || sp.tok.kind == lexIdent) && sp.tok.text == text
}

func (sp *schemaParser) expect(text string) error {
	if !sp.is(text) {
		return sp.errorf(sp.tok.line, "expecting: '%s' instead got: %s", text, sp.tok)
	}
	return sp.advance()
}

func (sp *schemaParser) expectIdent() (string, error) {
	if sp.tok.kind != lexIdent {
		return "", sp.errorf(sp.tok.line, "expecting: identifier instead got: %s", sp.tok)
	}
	s := sp.tok.text
	return s, sp.advance()
}

func (sp *schemaParser) expectString() (string, error) {
	if sp.tok.kind != lexString {
		return "", sp.errorf(sp.tok.line, "expecting: string constant instead got: %s", sp.tok)
	}
	s := sp.tok.text
	return s, sp.advance()
}

// qualifiedName parses ident ('.' ident)*.
func (sp *schemaParser) qualifiedName() (string, error) {
	name, err := sp.expectIdent()
	if err != nil {
		return "", err
	}
	for sp.is(".") {
		if err := sp.advance(); err != nil {
			return "", err
		}
		part, err := sp.expectIdent()
		if err != nil {
			return "", err
		}
		name += "." + part
	}
	return name, nil
}

func (sp *schemaParser) parse() error {
	if err := sp.advance(); err != nil {
		return err
	}
	for sp.tok.kind != lexEOF {
		line := sp.tok.line
		if sp.tok.kind != lexIdent {
			return sp.errorf(line, "unexpected %s", sp.tok)
		}
		kw := sp.tok.text
		if err := sp.advance(); err != nil {
			return err
		}
		var err error
		switch kw {
		case "include", "native_include":
			err = sp.parseInclude(line, kw == "native_include")
		case "namespace":
			err = sp.parseNamespace()
		case "table":
			err = sp.parseStruct(false)
		case "struct":
			err = sp.parseStruct(true)
		case "enum":
			err = sp.parseEnum()
		case "root_type":
			sp.rootLine = line
			if sp.rootName, err = sp.qualifiedName(); err == nil {
				sp.rootNS = sp.ns
				err = sp.expect(";")
			}
		case "file_identifier":
			if sp.fileIdent, err = sp.expectString(); err == nil {
				if len(sp.fileIdent) != 4 {
					return sp.errorf(line, "file_identifier must be exactly 4 characters")
				}
				err = sp.expect(";")
			}
		case "file_extension":
			if _, err = sp.expectString(); err == nil {
				err = sp.expect(";")
			}
		case "attribute":
			if sp.tok.kind == lexString || sp.tok.kind == lexIdent {
				if err = sp.advance(); err == nil {
					err = sp.expect(";")
				}
			} else {
				err = sp.errorf(line, "expecting: attribute name instead got: %s", sp.tok)
			}
		case "union":
			err = sp.errorf(line, "unions are not supported")
		case "rpc_service":
			err = sp.errorf(line, "rpc_service declarations are not supported")
		default:
			err = sp.errorf(line, "unexpected '%s'", kw)
		}
		if err != nil {
			return err
		}
	}
	return sp.resolve()
}

func (sp *schemaParser) parseInclude(line int, native bool) error {
	name, err := sp.expectString()
	if err != nil {
		return err
	}
	if err := sp.expect(";"); err != nil {
		return err
	}
	if native {
		return nil
	}
	for _, f := range sp.p.files {
		if f == name || strings.HasSuffix(f, "/"+name) || pathpkg.Base(f) == pathpkg.Base(name) {
			return nil
		}
	}
	return sp.errorf(line, "unable to locate include file: %s (modules must be loaded after the modules they include)", name)
}

func (sp *schemaParser) parseNamespace() error {
	if sp.is(";") {
		sp.ns = ""
		return sp.advance()
	}
	ns, err := sp.qualifiedName()
	if err != nil {
		return err
	}
	sp.ns = ns
	return sp.expect(";")
}

func (sp *schemaParser) parseMetadata() (map[string]string, error) {
	attrs := map[string]string{}
	if !sp.is("(") {
		return attrs, nil
	}
	if err := sp.advance(); err != nil {
		return nil, err
	}
	for !sp.is(")") {
		name, err := sp.expectIdent()
		if err != nil {
			return nil, err
		}
		attrs[name] = ""
		if sp.is(":") {
			if err := sp.advance(); err != nil {
				return nil, err
			}
			if sp.tok.kind == lexPunct || sp.tok.kind == lexEOF {
				return nil, sp.errorf(sp.tok.line, "expecting: attribute value instead got: %s", sp.tok)
			}
			attrs[name] = sp.tok.text
			if err := sp.advance(); err != nil {
				return nil, err
			}
		}
		if sp.is(",") {
			if err := sp.advance(); err != nil {
				return nil, err
			}
		} else if !sp.is(")") {
			return nil, sp.errorf(sp.tok.line, "expecting: ')' instead got: %s", sp.tok)
		}
	}
	return attrs, sp.advance()
}

func (sp *schemaParser) declare(line int, name string, def any) error {
	full := qualify(sp.ns, name)
	if _, ok := sp.local[full]; ok {
		return sp.errorf(line, "datatype already exists: %s", full)
	}
	if _, ok := sp.p.structs[full]; ok {
		return sp.errorf(line, "datatype already exists: %s", full)
	}
	if _, ok := sp.p.enums[full]; ok {
		return sp.errorf(line, "datatype already exists: %s", full)
	}
	sp.local[full] = def
	return nil
}

func (sp *schemaParser) parseStruct(fixed bool) error {
	line := sp.tok.line
	name, err := sp.expectIdent()
	if err != nil {
		return err
	}
	sd := &StructDef{Name: name, Namespace: sp.ns, Fixed: fixed, File: sp.file, byName: map[string]*Field{}}
	if err := sp.declare(line, name, sd); err != nil {
		return err
	}
	attrs, err := sp.parseMetadata()
	if err != nil {
		return err
	}
	if fa, ok := attrs["force_align"]; ok && fixed {
		n, err := strconv.Atoi(fa)
		if err != nil || n < 1 || n > 256 || n&(n-1) != 0 {
			return sp.errorf(line, "force_align must be a power of two between 1 and 256")
		}
		sd.MinAlign = n
	}
	if err := sp.expect("{"); err != nil {
		return err
	}
	for !sp.is("}") {
		if sp.tok.kind == lexEOF {
			return sp.errorf(sp.tok.line, "expecting: '}' instead got: %s", sp.tok)
		}
		if err := sp.parseField(sd); err != nil {
			return err
		}
	}
	if err := sp.advance(); err != nil {
		return err
	}
	if fixed && len(sd.Fields) == 0 {
		return sp.errorf(line, "size 0 structs not allowed: %s", name)
	}
	if err := sp.assignIDs(sd, line); err != nil {
		return err
	}
	sp.structs = append(sp.structs, sd)
	return nil
}

func (sp *schemaParser) parseField(sd *StructDef) error {
	line := sp.tok.line
	name, err := sp.expectIdent()
	if err != nil {
		return err
	}
	if _, dup := sd.byName[name]; dup {
		return sp.errorf(line, "field already exists: %s", name)
	}
	if err := sp.expect(":"); err != nil {
		return err
	}
	typ, err := sp.parseType()
	if err != nil {
		return err
	}
	f := &Field{Name: name, Type: typ, ID: -1, line: line}
	if sp.is("=") {
		if err := sp.advance(); err != nil {
			return err
		}
		if sp.tok.kind != lexNumber && sp.tok.kind != lexIdent {
			return sp.errorf(sp.tok.line, "expecting: default value instead got: %s", sp.tok)
		}
		if sd.Fixed {
			return sp.errorf(line, "default values are not supported for struct fields: %s", name)
		}
		f.defaultLit = sp.tok.text
		if err := sp.advance(); err != nil {
			return err
		}
	}
	attrs, err := sp.parseMetadata()
	if err != nil {
		return err
	}
	if _, ok := attrs["deprecated"]; ok {
		if sd.Fixed {
			return sp.errorf(line, "can't deprecate fields in a struct")
		}
		f.Deprecated = true
	}
	if _, ok := attrs["required"]; ok {
		f.Required = true
	}
	if id, ok := attrs["id"]; ok {
		n, err := strconv.Atoi(id)
		if err != nil || n < 0 {
			return sp.errorf(line, "invalid field id: %s", id)
		}
		f.ID = n
	}
	if err := sp.expect(";"); err != nil {
		return err
	}
	if typ.ref != "" {
		sp.refs = append(sp.refs, pendingRef{field: f, ns: sp.ns})
	}
	sd.Fields = append(sd.Fields, f)
	sd.byName[name] = f
	return nil
}

func (sp *schemaParser) assignIDs(sd *StructDef, line int) error {
	explicit := 0
	for _, f := range sd.Fields {
		if f.ID >= 0 {
			explicit++
		}
	}
	switch {
	case explicit == 0:
		for i, f := range sd.Fields {
			f.ID = i
		}
	case explicit != len(sd.Fields):
		return sp.errorf(line, "either all fields or no fields must have an 'id' attribute: %s", sd.Name)
	default:
		seen := make([]bool, len(sd.Fields))
		for _, f := range sd.Fields {
			if f.ID >= len(seen) || seen[f.ID] {
				return sp.errorf(f.line, "field id's must be consecutive from 0, id %d out of range or duplicated", f.ID)
			}
			seen[f.ID] = true
		}
	}
	for _, f := range sd.Fields {
		if f.ID > sd.maxID {
			sd.maxID = f.ID
		}
	}
	return nil
}

func (sp *schemaParser) parseType() (Type, error) {
	line := sp.tok.line
	if sp.is("[") {
		if err := sp.advance(); err != nil {
			return Type{}, err
		}
		elem, err := sp.parseType()
		if err != nil {
			return Type{}, err
		}
		if elem.Base == BaseVector {
			return Type{}, sp.errorf(line, "nested vector types not supported (wrap in table first)")
		}
		if err := sp.expect("]"); err != nil {
			return Type{}, err
		}
		return Type{Base: BaseVector, Elem: elem.Base, ref: elem.ref}, nil
	}
	name, err := sp.qualifiedName()
	if err != nil {
		return Type{}, err
	}
	if b, ok := scalarNames[name]; ok {
		return Type{Base: b}, nil
	}
	if name == "string" {
		return Type{Base: BaseString}, nil
	}
	return Type{ref: name}, nil
}

func (sp *schemaParser) parseEnum() error {
	line := sp.tok.line
	name, err := sp.expectIdent()
	if err != nil {
		return err
	}
	ed := &EnumDef{Name: name, Namespace: sp.ns}
	if err := sp.declare(line, name, ed); err != nil {
		return err
	}
	if err := sp.expect(":"); err != nil {
		return sp.errorf(line, "must specify the underlying integer type for enum: %s", name)
	}
	under, err := sp.parseType()
	if err != nil {
		return err
	}
	if under.Base == BaseBool || !under.Base.IsScalar() || under.Base.IsFloat() {
		return sp.errorf(line, "underlying enum type must be integral: %s", name)
	}
	ed.Underlying = under.Base
	attrs, err := sp.parseMetadata()
	if err != nil {
		return err
	}
	_, bitFlags := attrs["bit_flags"]
	if err := sp.expect("{"); err != nil {
		return err
	}
	next := int64(0)
	for !sp.is("}") {
		vline := sp.tok.line
		vname, err := sp.expectIdent()
		if err != nil {
			return err
		}
		if _, dup := ed.ByName(vname); dup {
			return sp.errorf(vline, "enum value already exists: %s", vname)
		}
		v := next
		if sp.is("=") {
			if err := sp.advance(); err != nil {
				return err
			}
			if sp.tok.kind != lexNumber {
				return sp.errorf(vline, "expecting: integer constant instead got: %s", sp.tok)
			}
			if v, err = strconv.ParseInt(sp.tok.text, 0, 64); err != nil {
				return sp.errorf(vline, "invalid enum value: %s", sp.tok.text)
			}
			if err := sp.advance(); err != nil {
				return err
			}
		}
		if _, err := sp.parseMetadata(); err != nil {
			return err
		}
		stored := v
		if bitFlags {
			if v < 0 || v >= int64(under.Base.Size()*8) {
				return sp.errorf(vline, "bit flag out of range of underlying integral type: %s", vname)
			}
			stored = int64(1) << uint(v)
		}
		if _, _, err := parseScalar(ed.Underlying, strconv.FormatInt(stored, 10), nil); err != nil {
			return sp.errorf(vline, "enum value does not fit in %s: %s", ed.Underlying, vname)
		}
		ed.Vals = append(ed.Vals, &EnumVal{Name: vname, Value: stored})
		next = v + 1
		if sp.is(",") {
			if err := sp.advance(); err != nil {
				return err
			}
		} else if !sp.is("}") {
			return sp.errorf(sp.tok.line, "expecting: '}' instead got: %s", sp.tok)
		}
	}
	if err := sp.advance(); err != nil {
		return err
	}
	if len(ed.Vals) == 0 {
		return sp.errorf(line, "enum %s has no values", name)
	}
	sp.enums = append(sp.enums, ed)
	return nil
}

// lookup resolves name from namespace ns outward, checking this module's
// declarations before the committed ones.
func (sp *schemaParser) lookup(name, ns string) any {
	var parts []string
	if ns != "" {
		parts = strings.Split(ns, ".")
	}
	for i := len(parts); i >= 0; i-- {
		full := qualify(strings.Join(parts[:i], "."), name)
		if d, ok := sp.local[full]; ok {
			return d
		}
		if d, ok := sp.p.structs[full]; ok {
			return d
		}
		if d, ok := sp.p.enums[full]; ok {
			return d
		}
	}
	return nil
}

func (sp *schemaParser) resolve() error {
	for _, r := range sp.refs {
		f := r.field
		def := sp.lookup(f.Type.ref, r.ns)
		var base BaseType
		switch d := def.(type) {
		case *StructDef:
			base = BaseTable
			if d.Fixed {
				base = BaseStruct
			}
			f.Type.Def = d
		case *EnumDef:
			base = d.Underlying
			f.Type.Enum = d
		default:
			return sp.errorf(f.line, "type referenced but not defined (check namespace): %s", f.Type.ref)
		}
		if f.Type.Base == BaseVector {
			f.Type.Elem = base
		} else {
			f.Type.Base = base
		}
		f.Type.ref = ""
	}

	for _, sd := range sp.structs {
		for _, f := range sd.Fields {
			if err := sp.checkField(sd, f); err != nil {
				return err
			}
		}
	}
	for _, sd := range sp.structs {
		if sd.Fixed {
			if err := layoutStruct(sd); err != nil {
				return sp.errorf(0, "%v", err)
			}
		}
	}

	if sp.rootName != "" {
		sd, ok := sp.lookup(sp.rootName, sp.rootNS).(*StructDef)
		if !ok {
			return sp.errorf(sp.rootLine, "unknown root type: %s", sp.rootName)
		}
		if sd.Fixed {
			return sp.errorf(sp.rootLine, "root type must be a table")
		}
	}
	return nil
}

func (sp *schemaParser) checkField(sd *StructDef, f *Field) error {
	t := f.Type
	if sd.Fixed {
		if !t.Base.IsScalar() && t.Base != BaseStruct {
			return sp.errorf(f.line, "structs may contain only scalar or struct fields: %s", f.Name)
		}
	}
	if f.Required && t.Base.IsScalar() {
		return sp.errorf(f.line, "only non-scalar fields in tables may be 'required': %s", f.Name)
	}
	if f.defaultLit == "" {
		return nil
	}
	if !t.Base.IsScalar() {
		return sp.errorf(f.line, "default values are only supported for scalar fields: %s", f.Name)
	}
	if f.defaultLit == "null" {
		f.Optional = true
		return nil
	}
	lit := f.defaultLit
	switch lit {
	case "nan", "+nan", "-nan":
		lit = "NaN"
	case "inf", "+inf", "infinity", "+infinity":
		lit = "+Inf"
	case "-inf", "-infinity":
		lit = "-Inf"
	}
	v, _, err := parseScalar(t.Base, lit, t.Enum)
	if err != nil {
		return sp.errorf(f.line, "invalid default for %s: %v", f.Name, err)
	}
	f.Default = v
	return nil
}

// layoutStruct computes field offsets, padding, alignment and size.
func layoutStruct(sd *StructDef) error {
	if sd.laidOut {
		return nil
	}
	if sd.inLayout {
		return fmt.Errorf("struct %s contains itself", sd.FullName())
	}
	sd.inLayout = true
	defer func() { sd.inLayout = false }()

	off, align := 0, 1
	var prev *Field
	for _, f := range sd.Fields {
		size, a := f.Type.Base.Size(), f.Type.Base.Size()
		if f.Type.Base == BaseStruct {
			if err := layoutStruct(f.Type.Def); err != nil {
				return err
			}
			size, a = f.Type.Def.ByteSize, f.Type.Def.MinAlign
		}
		pad := (a - off%a) % a
		if prev != nil {
			prev.Padding += pad
		}
		f.Offset = off + pad
		off = f.Offset + size
		if a > align {
			align = a
		}
		prev = f
	}
	if sd.MinAlign > align {
		align = sd.MinAlign
	}
	total := (off + align - 1) / align * align
	prev.Padding += total - off
	sd.ByteSize = total
	sd.MinAlign = align
	sd.laidOut = true
	return nil
}
