package flatjson

import (
	"errors"
	"io"

	flatbuffers "github.com/google/flatbuffers/go"

	eng "github.com/reoring/flatjson/internal/engine"
)

// Root is the shape of a generated FlatBuffers table accessor: a pointer type
// that can be pointed at a position in a buffer.
type Root[T any] interface {
	*T
	Init(buf []byte, i flatbuffers.UOffsetT)
	Table() flatbuffers.Table
}

// Named is implemented by roots that know their fully qualified schema type
// name. GenerateTextFromRoot requires it.
type Named interface {
	FullyQualifiedName() string
}

// Codec converts between JSON text and binary buffers of one root type. The
// schema modules load lazily on first use.
//
// A Codec is not synchronized; concurrent calls on one Codec are a data race.
type Codec[T any, PT Root[T]] struct {
	modules []SchemaModule
	opts    options

	registry    *Registry
	engine      *eng.Parser
	config      Config
	buf         []byte
	initialized bool
	lastErr     string
}

// NewCodec returns an uninitialized codec over modules, listed
// least-dependent first.
func NewCodec[T any, PT Root[T]](modules []SchemaModule, opts ...Option) (*Codec[T, PT], error) {
	if len(modules) == 0 {
		return nil, ErrNoModules
	}
	c := &Codec[T, PT]{modules: append([]SchemaModule(nil), modules...), opts: buildOptions(opts)}
	c.rebuild()
	c.config = c.opts.config
	return c, nil
}

// MustCodec is like NewCodec but panics on error.
func MustCodec[T any, PT Root[T]](modules []SchemaModule, opts ...Option) *Codec[T, PT] {
	c, err := NewCodec[T, PT](modules, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Codec[T, PT]) rebuild() {
	c.registry, _ = NewRegistry(c.modules, c.opts.policy)
	c.registry.logger = c.opts.logger
	c.engine = eng.NewParser()
	c.buf = nil
	c.initialized = false
	c.lastErr = ""
}

// ensureInit loads the schema modules once. Under PolicyStrict a failure
// panics; under PolicyTolerant it is returned and the codec still counts
// itself initialized.
func (c *Codec[T, PT]) ensureInit() error {
	if c.initialized {
		return nil
	}
	err := c.registry.Load(c.engine)
	c.initialized = true
	return err
}

func (c *Codec[T, PT]) fail(err error) Issues {
	c.lastErr = err.Error()
	return toIssues(err)
}

func (c *Codec[T, PT]) push() {
	c.engine.Opts = eng.Opts{
		StrictJSON:           c.config.StrictJSONKeys,
		IndentStep:           c.config.IndentStep,
		OutputDefaultScalars: c.config.EmitDefaultScalars,
		MaxDepth:             c.opts.limits.MaxDepth,
	}
}

// Parse converts JSON text into a new buffer, replacing the current one only
// on success. On failure the previous buffer is kept and the returned Issues
// describe the problem.
func (c *Codec[T, PT]) Parse(data []byte) error {
	if err := c.ensureInit(); err != nil {
		return c.fail(err)
	}
	if limit := c.opts.limits.MaxBytes; limit > 0 && int64(len(data)) > limit {
		c.lastErr = "max bytes exceeded"
		return singleIssue(CodeTruncated, c.lastErr, nil)
	}
	c.push()
	if err := c.engine.ParseJSON(data); err != nil {
		return c.fail(err)
	}
	c.buf = c.engine.Bytes()
	c.lastErr = ""
	return nil
}

// ParseString is Parse for string input.
func (c *Codec[T, PT]) ParseString(s string) error { return c.Parse([]byte(s)) }

// ParseReader reads r to the end and parses it. When Limits.MaxBytes is set
// at most MaxBytes+1 bytes are read.
func (c *Codec[T, PT]) ParseReader(r io.Reader) error {
	if limit := c.opts.limits.MaxBytes; limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return c.fail(err)
	}
	return c.Parse(data)
}

// LastError returns the diagnostic of the most recent Parse or generate call,
// or "" when it succeeded.
func (c *Codec[T, PT]) LastError() string { return c.lastErr }

// Buffer returns the buffer produced by the last successful Parse, or nil.
// The slice is owned by the codec and is replaced, not mutated, by later
// parses.
func (c *Codec[T, PT]) Buffer() []byte { return c.buf }

// Len returns the size of the current buffer.
func (c *Codec[T, PT]) Len() int { return len(c.buf) }

// Root returns an unverified view of the current buffer, or nil when there
// is none. Call IsValid first when the bytes are untrusted. The view is only
// meaningful until the next Parse or Reset.
func (c *Codec[T, PT]) Root() PT {
	if len(c.buf) < flatbuffers.SizeUOffsetT {
		return nil
	}
	root := PT(new(T))
	root.Init(c.buf, flatbuffers.GetUOffsetT(c.buf))
	return root
}

// IsValid reports whether the current buffer is a well-formed instance of the
// root type. It is Verify(Buffer()) == nil, and false when there is no buffer.
func (c *Codec[T, PT]) IsValid() bool {
	if len(c.buf) == 0 {
		return false
	}
	return c.Verify(c.buf) == nil
}

// Verify runs the bounded structural verifier over buf. It never reads
// outside buf and does not change the codec's buffer or LastError.
func (c *Codec[T, PT]) Verify(buf []byte) error {
	if err := c.ensureInit(); err != nil {
		return toIssues(err)
	}
	if len(buf) == 0 {
		return singleIssue(CodeNoBuffer, "empty buffer", ErrNoBuffer)
	}
	c.push()
	if err := c.engine.Verify(buf); err != nil {
		return toIssues(err)
	}
	return nil
}

// GenerateText renders buf, read as the root type, as JSON text using the
// current Config. No structural check is performed: verify untrusted buffers
// first. Malformed buffers yield an error, never a crash.
func (c *Codec[T, PT]) GenerateText(buf []byte) (string, error) {
	if err := c.ensureInit(); err != nil {
		return "", c.fail(err)
	}
	if len(buf) == 0 {
		c.lastErr = ErrNoBuffer.Error()
		return "", singleIssue(CodeNoBuffer, "no buffer to generate text from", ErrNoBuffer)
	}
	c.push()
	out, err := c.engine.GenerateText(buf)
	if err != nil {
		return "", c.fail(err)
	}
	c.lastErr = ""
	return out, nil
}

// Text renders the current buffer.
func (c *Codec[T, PT]) Text() (string, error) { return c.GenerateText(c.buf) }

// GenerateTextFromRoot renders an already typed root. The root must implement
// Named; otherwise the call fails with CodeReflectionUnavailable.
func (c *Codec[T, PT]) GenerateTextFromRoot(root PT) (string, error) {
	if err := c.ensureInit(); err != nil {
		return "", c.fail(err)
	}
	if root == nil {
		c.lastErr = ErrNoBuffer.Error()
		return "", singleIssue(CodeNoBuffer, "nil root", ErrNoBuffer)
	}
	named, ok := any(root).(Named)
	if !ok {
		c.lastErr = ErrReflectionUnavailable.Error()
		return "", singleIssue(CodeReflectionUnavailable, c.lastErr, ErrReflectionUnavailable)
	}
	tab := root.Table()
	c.push()
	out, err := c.engine.GenerateTextFromTable(named.FullyQualifiedName(), tab.Bytes, tab.Pos)
	if err != nil {
		iss := c.fail(err)
		if iss[0].Code == CodeReflectionUnavailable {
			iss[0].Cause = ErrReflectionUnavailable
		}
		return "", iss
	}
	c.lastErr = ""
	return out, nil
}

// Reset discards the loaded schema, the buffer and the configuration. The
// modules reload on next use and Config returns to DefaultConfig.
func (c *Codec[T, PT]) Reset() {
	c.rebuild()
	c.config = DefaultConfig()
}

// ResetConfig restores DefaultConfig, leaving the schema and buffer alone.
func (c *Codec[T, PT]) ResetConfig() { c.config = DefaultConfig() }

func (c *Codec[T, PT]) Config() Config { return c.config }

func (c *Codec[T, PT]) SetConfig(cfg Config) { c.config = cfg }

func (c *Codec[T, PT]) SetStrictJSONKeys(v bool) { c.config.StrictJSONKeys = v }

func (c *Codec[T, PT]) SetIndentStep(n int) { c.config.IndentStep = n }

func (c *Codec[T, PT]) SetEmitDefaultScalars(v bool) { c.config.EmitDefaultScalars = v }

// Registry exposes the schema registry, mainly for its load state.
func (c *Codec[T, PT]) Registry() *Registry { return c.registry }

// Policy reports the active schema load policy.
func (c *Codec[T, PT]) Policy() LoadPolicy { return c.opts.policy }

// RootType returns the fully qualified name of the root table once the schema
// is loaded, or "".
func (c *Codec[T, PT]) RootType() string {
	if r := c.engine.Root(); r != nil {
		return r.FullName()
	}
	return ""
}

// IsSchemaLoadError reports whether err, or a value recovered from a
// PolicyStrict panic, is a schema load failure.
func IsSchemaLoadError(err any) bool {
	e, ok := err.(error)
	if !ok {
		return false
	}
	var sle *SchemaLoadError
	return errors.As(e, &sle)
}
