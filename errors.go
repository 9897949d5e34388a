package psyreport

import (
	"errors"
	"fmt"
)

// Sentinel errors for the report pipeline failure conditions.
var (
	ErrMissingField      = errors.New("psyreport: missing field")
	ErrInvalidSection    = errors.New("psyreport: invalid section")
	ErrUnknownPageFormat = errors.New("psyreport: unknown page format")
	ErrAssetUnavailable  = errors.New("psyreport: asset unavailable")
)

// ValidationError reports a malformed template or report. Field names the
// offending field, e.g. "category" or "sections[2].options".
type ValidationError struct {
	Field  string // offending field path
	Reason string // human readable reason
	Err    error  // ErrMissingField or ErrInvalidSection
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("psyreport: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError of the given kind.
func NewValidationError(kind error, field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: kind}
}

// RenderError represents an unrecoverable failure while laying out or
// painting a document. No output is produced when it is returned.
type RenderError struct {
	Op  string // operation name, e.g. "Layout", "Paint"
	Err error  // underlying error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("psyreport.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("psyreport.%s: unknown error", e.Op)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// NewRenderError creates a new RenderError wrapping err with operation context.
func NewRenderError(op string, err error) *RenderError {
	return &RenderError{Op: op, Err: err}
}

// AssetError describes a branding image that could not be used. It matches
// ErrAssetUnavailable with errors.Is. Renderers recover from it by skipping
// the image.
type AssetError struct {
	Ref string // "category/id"
	Err error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("psyreport: asset %s unavailable: %v", e.Ref, e.Err)
}

func (e *AssetError) Unwrap() []error {
	return []error{ErrAssetUnavailable, e.Err}
}
