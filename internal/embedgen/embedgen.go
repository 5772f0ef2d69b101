// Package embedgen turns a .fbs schema file into Go source exposing the
// schema text as a flatjson.ModuleProvider.
package embedgen

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"unicode"
)

const (
	DefaultExt      = "go"
	DefaultRcSuffix = "_rc"
)

// ErrNoClassName is returned when the input file name does not end in a
// name matching [\w-]+.fbs.
var ErrNoClassName = errors.New("embedgen: input file name does not match [\\w-]+.fbs")

var classPattern = regexp.MustCompile(`([\w-]+)\.fbs`)

// Options describes one generation run.
type Options struct {
	Input     string
	OutputDir string
	Ext       string // file extension without the dot; DefaultExt when empty
	RcSuffix  string // appended to the class name in the file name; DefaultRcSuffix when empty
	Package   string // overrides the package derived from the namespace
}

// Resource is the data rendered into the generated file.
type Resource struct {
	Package    string
	Class      string   // class name taken from the file name
	TypeName   string   // exported Go type, e.g. MonsterRc
	Namespaces []string // leading namespace components
	Data       []byte
}

// Path is the logical path the schema is loaded under: the namespace
// components followed by <class>.fbs.
func (r Resource) Path() string {
	return strings.Join(append(append([]string(nil), r.Namespaces...), r.Class+".fbs"), "/")
}

// Directory is the namespace part of Path.
func (r Resource) Directory() string { return strings.Join(r.Namespaces, "/") }

// ClassName derives the class name from a schema file name.
func ClassName(input string) (string, error) {
	m := classPattern.FindStringSubmatch(input)
	if len(m) < 2 {
		return "", ErrNoClassName
	}
	return m[1], nil
}

// ScanNamespaces returns the components of the first namespace declaration
// in src. Only the line holding the first "namespace" is considered.
func ScanNamespaces(src []byte) []string {
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), len(src)+1)
	for sc.Scan() {
		line := sc.Text()
		i := strings.Index(line, "namespace")
		if i < 0 {
			continue
		}
		var out []string
		for _, tok := range strings.FieldsFunc(line[i:], func(r rune) bool {
			return r == ' ' || r == '.' || r == ';' || r == '\t' || r == '\r'
		}) {
			if tok != "namespace" {
				out = append(out, tok)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// NewResource builds the Resource for a schema file named input with
// contents src.
func NewResource(input string, src []byte, pkg string) (Resource, error) {
	class, err := ClassName(filepath.Base(input))
	if err != nil {
		return Resource{}, err
	}
	ns := ScanNamespaces(src)
	if pkg == "" {
		pkg = packageName(ns)
	}
	return Resource{
		Package:    pkg,
		Class:      class,
		TypeName:   exportedName(class) + "Rc",
		Namespaces: ns,
		Data:       src,
	}, nil
}

func packageName(ns []string) string {
	if len(ns) == 0 {
		return "schema"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(ns[len(ns)-1]) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 || !unicode.IsLetter(rune(b.String()[0])) {
		return "schema"
	}
	return b.String()
}

func exportedName(class string) string {
	var b strings.Builder
	upper := true
	for _, r := range class {
		if r == '-' || r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	name := b.String()
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "Schema" + name
	}
	return name
}

var fileTemplate = template.Must(template.New("rc").Funcs(template.FuncMap{
	"lines": quoteLines,
	"quote": strconv.Quote,
	"lower": func(s string) string { return strings.ToLower(s[:1]) + s[1:] },
}).Parse(`// Code generated by fbsembed. DO NOT EDIT.

package {{.Package}}

// {{.TypeName}} embeds the schema {{quote .Path}}.
type {{.TypeName}} struct{}

const {{lower .TypeName}}Data = {{lines .Data}}

// Data returns the schema source text.
func ({{.TypeName}}) Data() string { return {{lower .TypeName}}Data }

// Path returns the logical path the schema is loaded under.
func ({{.TypeName}}) Path() string { return {{quote .Path}} }

// Directory returns the namespace directory of Path.
func ({{.TypeName}}) Directory() string { return {{quote .Directory}} }
`))

// quoteLines renders data as a concatenation of quoted string literals, one
// per source line.
func quoteLines(data []byte) string {
	if len(data) == 0 {
		return `""`
	}
	var parts []string
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			i = len(data) - 1
		}
		parts = append(parts, strconv.Quote(string(data[:i+1])))
		data = data[i+1:]
	}
	return strings.Join(parts, " +\n\t")
}

// Render returns the gofmt-ed Go source for r.
func Render(r Resource) ([]byte, error) {
	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("embedgen: render: %w", err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("embedgen: format: %w", err)
	}
	return out, nil
}

// OutputPath is where Generate writes for opts and class.
func OutputPath(opts Options, class string) string {
	ext, suffix := opts.Ext, opts.RcSuffix
	if ext == "" {
		ext = DefaultExt
	}
	if suffix == "" {
		suffix = DefaultRcSuffix
	}
	return filepath.Join(opts.OutputDir, class+suffix+"."+ext)
}

// Generate reads opts.Input, renders it and writes the result under
// opts.OutputDir, creating the directory when needed. It returns the written
// path.
func Generate(opts Options) (string, error) {
	if opts.Input == "" {
		return "", errors.New("embedgen: no input file given")
	}
	if opts.OutputDir == "" {
		return "", errors.New("embedgen: no output folder given")
	}
	src, err := os.ReadFile(opts.Input)
	if err != nil {
		return "", fmt.Errorf("embedgen: read input: %w", err)
	}
	res, err := NewResource(opts.Input, src, opts.Package)
	if err != nil {
		return "", err
	}
	code, err := Render(res)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("embedgen: create output dir: %w", err)
	}
	out := OutputPath(opts, res.Class)
	if err := os.WriteFile(out, code, 0o644); err != nil {
		return "", fmt.Errorf("embedgen: write output: %w", err)
	}
	return out, nil
}
