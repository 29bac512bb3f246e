package catalog

import "fmt"

// NotFoundError reports an operation that referenced an unknown
// workspace, folder, or chat id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found", e.Kind, e.ID)
}

// ValidationError reports rejected input, such as an empty name or an
// attempt to delete the last workspace.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func notFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
