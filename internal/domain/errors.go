package domain

import "errors"

// ErrorKind classifies a failure for callers that need to map it onto a
// transport-level response.
type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindInvalidState        ErrorKind = "invalid_state"
	KindAlreadyActed        ErrorKind = "already_acted"
	KindValidationFailed    ErrorKind = "validation_failed"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindNoPlayableContent   ErrorKind = "no_playable_content"
)

// Error is a typed failure surfaced by core operations. Sentinel values
// are declared where the operations live; wrap them with fmt.Errorf and
// %w to add context.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// KindOf extracts the ErrorKind from err, or "" if err carries none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
