package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrOwnershipMismatch     = errors.New("ownership mismatch")
	ErrNotFound              = errors.New("not found")
	ErrConflictingOrder      = errors.New("conflicting order")
	ErrDanglingReference     = errors.New("dangling reference")
	ErrPreconditionNotMet    = errors.New("precondition not met")
	ErrEmptyBlueprint        = errors.New("empty blueprint")
	ErrAlreadyExpanded       = errors.New("blueprint already expanded")
	ErrNonEmptyChaptersExist = errors.New("non-empty chapters exist")
	ErrExportInProgress      = errors.New("export in progress")
	ErrValidation            = errors.New("validation error")
	ErrStaleWrite            = errors.New("stale write")
	ErrUnavailable           = errors.New("provider unavailable")
	ErrRenderFailed          = errors.New("render failed")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error onto a stable classification string for logs and CLI
// output. Unknown errors report "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrOwnershipMismatch):
		return "ownership_mismatch"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflictingOrder):
		return "conflicting_order"
	case errors.Is(err, ErrDanglingReference):
		return "dangling_reference"
	case errors.Is(err, ErrPreconditionNotMet):
		return "precondition_not_met"
	case errors.Is(err, ErrEmptyBlueprint):
		return "empty_blueprint"
	case errors.Is(err, ErrAlreadyExpanded):
		return "already_expanded"
	case errors.Is(err, ErrNonEmptyChaptersExist):
		return "non_empty_chapters_exist"
	case errors.Is(err, ErrExportInProgress):
		return "export_in_progress"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrStaleWrite):
		return "stale_write"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrRenderFailed):
		return "render_failed"
	default:
		return "internal"
	}
}

// PreconditionError reports a blocked lifecycle transition together with every
// condition that was not satisfied.
type PreconditionError struct {
	Transition string
	Conditions []string
}

func (e *PreconditionError) Error() string {
	if e == nil {
		return ErrPreconditionNotMet.Error()
	}
	detail := strings.Join(e.Conditions, "; ")
	if detail == "" {
		detail = "unspecified condition"
	}
	if e.Transition == "" {
		return fmt.Sprintf("%s: %s", ErrPreconditionNotMet, detail)
	}
	return fmt.Sprintf("%s: %s: %s", ErrPreconditionNotMet, e.Transition, detail)
}

// Is lets errors.Is match PreconditionError against ErrPreconditionNotMet.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPreconditionNotMet
}

// Precondition returns a PreconditionError, or nil when no conditions are unmet.
func Precondition(transition string, conditions ...string) error {
	if len(conditions) == 0 {
		return nil
	}
	return &PreconditionError{Transition: transition, Conditions: conditions}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
