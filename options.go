package flatjson

import (
	"context"
	"log/slog"

	eng "github.com/reoring/flatjson/internal/engine"
)

// Config holds the serialization options pushed into the engine on every
// parse and generate call. Changes take effect on the next call only.
type Config struct {
	// StrictJSONKeys quotes object keys on output and requires quoted keys on
	// input. When false, bare keys, bare enum names, comments and trailing
	// commas are accepted.
	StrictJSONKeys bool `json:"strict_json_keys" yaml:"strict_json_keys" toml:"strict_json_keys"`
	// IndentStep is the number of spaces per nesting level; -1 renders a
	// single line.
	IndentStep int `json:"indent_step" yaml:"indent_step" toml:"indent_step"`
	// EmitDefaultScalars renders scalar fields that hold their default value.
	EmitDefaultScalars bool `json:"emit_default_scalars" yaml:"emit_default_scalars" toml:"emit_default_scalars"`
}

// DefaultConfig returns strict keys, single-line output and emitted defaults.
func DefaultConfig() Config {
	return Config{StrictJSONKeys: true, IndentStep: -1, EmitDefaultScalars: true}
}

// Limits bounds the input a codec accepts.
type Limits struct {
	MaxDepth int   // JSON nesting and verifier depth; 0 means the default of 64.
	MaxBytes int64 // JSON input size; 0 means unlimited.
}

// DefaultMaxDepth is the nesting limit used when Limits.MaxDepth is zero.
const DefaultMaxDepth = eng.DefaultMaxDepth

// Option configures a Codec or Pool.
type Option func(*options)

type options struct {
	policy LoadPolicy
	config Config
	limits Limits
	logger *slog.Logger
}

var discardLogger = slog.New(discardHandler{})

// discardHandler mirrors slog.DiscardHandler (Go 1.24+) for older toolchains.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

func buildOptions(opts []Option) options {
	o := options{policy: PolicyStrict, config: DefaultConfig(), logger: discardLogger}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// WithLoadPolicy selects the schema load failure policy. PolicyStrict is the
// default.
func WithLoadPolicy(p LoadPolicy) Option { return func(o *options) { o.policy = p } }

// WithConfig sets the initial configuration. Reset and ResetConfig still
// restore DefaultConfig.
func WithConfig(c Config) Option { return func(o *options) { o.config = c } }

// WithLimits sets input limits.
func WithLimits(l Limits) Option { return func(o *options) { o.limits = l } }

// WithLogger routes diagnostics to l. A nil logger discards them.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = discardLogger
		}
		o.logger = l
	}
}
