package flatjson

import (
	"errors"
	"fmt"
	"strings"

	eng "github.com/reoring/flatjson/internal/engine"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeParseError   = eng.CodeParseError
	CodeInvalidType  = eng.CodeInvalidType
	CodeUnknownKey   = eng.CodeUnknownKey
	CodeDuplicateKey = eng.CodeDuplicateKey
	CodeRequired     = eng.CodeRequired
	CodeOverflow     = eng.CodeOverflow
	CodeTruncated    = eng.CodeTruncated
	// Buffer and schema level failures
	CodeVerificationFailed    = eng.CodeVerification
	CodeReflectionUnavailable = eng.CodeReflectionMissing
	CodeGenerationFailed      = eng.CodeGenerationFailed
	CodeNoBuffer              = "no_buffer"
	CodeSchemaLoad            = eng.CodeSchemaLoad
)

var (
	// ErrNoModules is returned when a registry is built without schema modules.
	ErrNoModules = errors.New("flatjson: at least one schema module is required")
	// ErrNoBuffer is the cause of issues raised when there is no buffer to work on.
	ErrNoBuffer = errors.New("flatjson: no buffer")
	// ErrReflectionUnavailable is the cause of issues raised when a typed root
	// carries no type name to generate text with.
	ErrReflectionUnavailable = errors.New("flatjson: root type does not expose reflection metadata")
)

// Issue represents a single failure entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /weapons/2/damage).
	Code    string // One of the codes listed above.
	Message string
	Cause   error // Optional: underlying error.
	Offset  int64 // Byte offset in the JSON input just past the offending token (-1 when unknown).
}

// Issues is a collection of failures that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /hp: value out of range
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		if it.Message != "" {
			fmt.Fprintf(b, ": %s", it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the causes so errors.Is and errors.As see sentinels and
// *SchemaLoadError through an Issues value.
func (iss Issues) Unwrap() []error {
	var errs []error
	for _, it := range iss {
		if it.Cause != nil {
			errs = append(errs, it.Cause)
		}
	}
	return errs
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// SchemaLoadError reports the schema module that failed to load. Under
// PolicyStrict it is the value passed to panic.
type SchemaLoadError struct {
	Index int    // position of the module in load order
	Path  string // logical path of the module
	Err   error
}

func (e *SchemaLoadError) Error() string {
	return fmt.Sprintf("flatjson: schema module %d (%s) failed to load: %v", e.Index, e.Path, e.Err)
}

func (e *SchemaLoadError) Unwrap() error { return e.Err }

func toIssues(err error) Issues {
	if err == nil {
		return nil
	}
	if ii, ok := AsIssues(err); ok {
		return ii
	}
	var sle *SchemaLoadError
	if errors.As(err, &sle) {
		return singleIssue(CodeSchemaLoad, sle.Error(), sle)
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return AppendIssues(nil, Issue{Code: ie.Code, Path: ie.Path, Message: ie.Message, Offset: ie.Offset})
	}
	return singleIssue(CodeParseError, err.Error(), err)
}

func singleIssue(code, msg string, cause error) Issues {
	return AppendIssues(nil, Issue{Code: code, Path: "/", Message: msg, Cause: cause, Offset: -1})
}
