package flatjson

// SchemaModule is one unit of schema source text plus the logical path it is
// known by. Modules are immutable once built.
type SchemaModule struct {
	Source    string
	Path      string
	Directory string
}

// ModuleProvider is implemented by generated resource types (see cmd/fbsembed).
type ModuleProvider interface {
	Data() string
	Path() string
	Directory() string
}

// Modules assembles providers into an ordered module list. Order is kept as
// given: list least-dependent modules first.
func Modules(providers ...ModuleProvider) []SchemaModule {
	out := make([]SchemaModule, 0, len(providers))
	for _, p := range providers {
		out = append(out, SchemaModule{Source: p.Data(), Path: p.Path(), Directory: p.Directory()})
	}
	return out
}
