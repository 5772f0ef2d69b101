package engine

import "fmt"

// Issue codes produced by the engine. The root package re-exports them.
const (
	CodeParseError        = "parse_error"
	CodeInvalidType       = "invalid_type"
	CodeUnknownKey        = "unknown_key"
	CodeDuplicateKey      = "duplicate_key"
	CodeRequired          = "required"
	CodeOverflow          = "overflow"
	CodeTruncated         = "truncated"
	CodeSchemaLoad        = "schema_load"
	CodeVerification      = "verification_failed"
	CodeReflectionMissing = "reflection_unavailable"
	CodeGenerationFailed  = "generation_failed"
)

// SimpleIssue is a minimal issue representation used by internal helpers.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
	Offset  int64 // input byte offset, -1 when unknown
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string {
	if e.Path == "" || e.Path == "/" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

func issuef(code, path, format string, args ...any) error {
	return issueAt(code, path, -1, format, args...)
}

func issueAt(code, path string, off int64, format string, args ...any) error {
	return IssueError{SimpleIssue{Code: code, Path: normalizeIssuePath(path), Message: fmt.Sprintf(format, args...), Offset: off}}
}
