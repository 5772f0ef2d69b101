package engine

import (
	"errors"
	"fmt"
	"io"

	flatbuffers "github.com/google/flatbuffers/go"
)

// DefaultMaxDepth bounds JSON nesting and verifier recursion.
const DefaultMaxDepth = 64

// Opts are the mutable per-call options. The engine keeps no other
// configuration; callers push these before every parse or generate.
type Opts struct {
	StrictJSON           bool
	IndentStep           int
	OutputDefaultScalars bool
	MaxDepth             int
}

// Parser holds the loaded schema definitions and the last produced buffer.
type Parser struct {
	Opts Opts
	// Error holds the last diagnostic, or "" after a successful call.
	Error string

	structs   map[string]*StructDef
	enums     map[string]*EnumDef
	files     []string
	root      *StructDef
	fileIdent string
	buf       []byte
}

// NewParser returns an empty Parser with strict JSON, single-line output and
// default scalars emitted.
func NewParser() *Parser {
	return &Parser{
		Opts: Opts{
			StrictJSON:           true,
			IndentStep:           -1,
			OutputDefaultScalars: true,
			MaxDepth:             DefaultMaxDepth,
		},
		structs: map[string]*StructDef{},
		enums:   map[string]*EnumDef{},
	}
}

func (p *Parser) record(err error) error {
	if err == nil {
		p.Error = ""
		return nil
	}
	p.Error = err.Error()
	return err
}

// LoadSchema parses one schema module. Types referenced by the module must
// be declared in it or in a previously loaded module; includes resolve only
// against already-loaded logical paths. A failing module leaves the
// definitions unchanged.
func (p *Parser) LoadSchema(text, path string) error {
	sp := newSchemaParser(p, text, path)
	if err := sp.parse(); err != nil {
		return p.record(IssueError{SimpleIssue{Code: CodeSchemaLoad, Path: "/", Message: err.Error(), Offset: -1}})
	}
	for _, sd := range sp.structs {
		p.structs[sd.FullName()] = sd
	}
	for _, ed := range sp.enums {
		p.enums[ed.FullName()] = ed
	}
	if sp.rootName != "" {
		p.root = sp.lookup(sp.rootName, sp.rootNS).(*StructDef)
	}
	if sp.fileIdent != "" {
		p.fileIdent = sp.fileIdent
	}
	p.files = append(p.files, path)
	return p.record(nil)
}

// Files lists the logical paths loaded so far, in load order.
func (p *Parser) Files() []string { return append([]string(nil), p.files...) }

// Root returns the declared root table, or nil.
func (p *Parser) Root() *StructDef { return p.root }

// FileIdentifier returns the declared file identifier, or "".
func (p *Parser) FileIdentifier() string { return p.fileIdent }

// LookupTable finds a table or struct by fully qualified name.
func (p *Parser) LookupTable(name string) *StructDef { return p.structs[name] }

// LookupEnum finds an enum by fully qualified name.
func (p *Parser) LookupEnum(name string) *EnumDef { return p.enums[name] }

// Bytes returns the buffer produced by the last successful ParseJSON.
func (p *Parser) Bytes() []byte { return p.buf }

// ParseJSON converts a JSON document into a binary buffer of the root type.
// In non-strict mode bare keys, bare enum identifiers, single-quoted strings,
// comments and trailing commas are accepted. On failure the previous buffer is
// kept.
func (p *Parser) ParseJSON(data []byte) error {
	if p.root == nil {
		return p.record(issuef(CodeParseError, "", "no root type set to parse json with"))
	}
	if !p.Opts.StrictJSON {
		data = relaxJSON(data)
	}
	if err := checkSyntax(data); err != nil {
		return p.record(p.inputIssue(err))
	}
	src := WrapWithEnforcement(NewJSONSource(data), EnforceOptions{MaxDepth: p.maxDepth()})
	n, err := decodeNode(src)
	if err != nil {
		var ie IssueError
		if errors.As(err, &ie) {
			return p.record(p.inputIssue(ie))
		}
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return p.record(issuef(CodeParseError, "", "invalid JSON: %v", err))
	}

	b := flatbuffers.NewBuilder(1024)
	bb := &bufferBuilder{b: b, p: p}
	root, err := bb.table(p.root, n, "", 0)
	if err != nil {
		return p.record(p.inputIssue(err))
	}
	if p.fileIdent != "" {
		b.FinishWithFileIdentifier(root, []byte(p.fileIdent))
	} else {
		b.Finish(root)
	}
	p.buf = b.FinishedBytes()
	return p.record(nil)
}

// Verify checks that buf is a well-formed instance of the root type.
func (p *Parser) Verify(buf []byte) error {
	if p.root == nil {
		return p.record(issuef(CodeVerification, "", "no root type set to verify with"))
	}
	v := &verifier{buf: buf, maxDepth: p.maxDepth(), maxTables: defaultMaxTables}
	return p.record(v.verifyRoot(p.root, p.fileIdent))
}

// GenerateText renders buf, interpreted as the root type, as JSON text. No
// structural check is performed; malformed input yields an error rather than
// a crash.
func (p *Parser) GenerateText(buf []byte) (string, error) {
	if p.root == nil {
		return "", p.record(issuef(CodeGenerationFailed, "", "no root type set to generate text with"))
	}
	if len(buf) < flatbuffers.SizeUOffsetT {
		return "", p.record(issuef(CodeVerification, "", "buffer too small"))
	}
	pos := flatbuffers.GetUOffsetT(buf)
	return p.generate(p.root, buf, pos)
}

// GenerateTextFromTable renders the table at pos of the named type. The name
// must be fully qualified.
func (p *Parser) GenerateTextFromTable(name string, buf []byte, pos flatbuffers.UOffsetT) (string, error) {
	sd := p.structs[name]
	if sd == nil || sd.Fixed {
		return "", p.record(issuef(CodeReflectionMissing, "", "unknown table type: %s", name))
	}
	return p.generate(sd, buf, pos)
}

func (p *Parser) generate(sd *StructDef, buf []byte, pos flatbuffers.UOffsetT) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = p.record(issuef(CodeVerification, "", "malformed buffer: %v", r))
		}
	}()
	w := &textWriter{opts: p.Opts, maxDepth: p.maxDepth(), maxTables: defaultMaxTables}
	w.table(sd, buf, pos, 0)
	return w.sb.String(), p.record(nil)
}

// inputIssue drops input offsets in non-strict mode, where they would point
// into the normalized text rather than the caller's input.
func (p *Parser) inputIssue(err error) error {
	var ie IssueError
	if p.Opts.StrictJSON || !errors.As(err, &ie) {
		return err
	}
	ie.Offset = -1
	return ie
}

func (p *Parser) maxDepth() int {
	if p.Opts.MaxDepth > 0 {
		return p.Opts.MaxDepth
	}
	return DefaultMaxDepth
}

func (s *StructDef) String() string {
	kind := "table"
	if s.Fixed {
		kind = "struct"
	}
	return fmt.Sprintf("%s %s", kind, s.FullName())
}
