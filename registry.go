package flatjson

import (
	"log/slog"
)

// LoadState is the lifecycle state of a Registry.
type LoadState int

const (
	Unloaded LoadState = iota
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unloaded"
	}
}

// LoadPolicy selects what happens when a schema module fails to load.
type LoadPolicy int

const (
	// PolicyStrict treats a load failure as a programmer error and panics
	// with a *SchemaLoadError. Schema modules are build-time data, so no
	// runtime input can reach this branch.
	PolicyStrict LoadPolicy = iota
	// PolicyTolerant returns the failure as an error. The owning codec still
	// counts itself initialized afterwards and does not retry; call Reset to
	// rebuild it. Kept for compatibility with older wrappers.
	PolicyTolerant
)

func (p LoadPolicy) String() string {
	if p == PolicyTolerant {
		return "tolerant"
	}
	return "strict"
}

// SchemaLoader consumes schema modules one at a time.
type SchemaLoader interface {
	LoadSchema(text, path string) error
}

// Registry feeds an ordered list of schema modules into a SchemaLoader and
// tracks the outcome. Modules are never reordered and no include path search
// is performed. Failed is terminal.
type Registry struct {
	modules []SchemaModule
	policy  LoadPolicy
	state   LoadState
	err     *SchemaLoadError
	logger  *slog.Logger
}

// NewRegistry returns an Unloaded registry over modules.
func NewRegistry(modules []SchemaModule, policy LoadPolicy) (*Registry, error) {
	if len(modules) == 0 {
		return nil, ErrNoModules
	}
	return &Registry{
		modules: append([]SchemaModule(nil), modules...),
		policy:  policy,
		logger:  discardLogger,
	}, nil
}

// Modules returns the modules in load order.
func (r *Registry) Modules() []SchemaModule { return append([]SchemaModule(nil), r.modules...) }

func (r *Registry) State() LoadState { return r.state }

func (r *Registry) Policy() LoadPolicy { return r.policy }

// Err returns the load failure, or nil.
func (r *Registry) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// Load feeds every module into l in order, stopping at the first failure.
// Loading an already loaded registry is a no-op; loading a failed one
// reports the stored failure again without touching l.
func (r *Registry) Load(l SchemaLoader) error {
	switch r.state {
	case Loaded:
		return nil
	case Failed:
		return r.fail()
	}
	for i, m := range r.modules {
		if err := l.LoadSchema(m.Source, m.Path); err != nil {
			r.state = Failed
			r.err = &SchemaLoadError{Index: i, Path: m.Path, Err: err}
			return r.fail()
		}
		r.logger.Debug("schema module loaded", "path", m.Path, "index", i)
	}
	r.state = Loaded
	return nil
}

func (r *Registry) fail() error {
	if r.policy == PolicyStrict {
		panic(r.err)
	}
	r.logger.Warn("schema module failed to load", "path", r.err.Path, "index", r.err.Index, "error", r.err.Err)
	return r.err
}
