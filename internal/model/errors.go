package model

// NotFoundError indicates an operation referenced an unknown artifact id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "artifact not found: " + e.ID
}

// ConflictError indicates a session was requested while another one is
// still active.
type ConflictError struct {
	Op string
}

func (e *ConflictError) Error() string {
	return e.Op + ": another session is already active"
}
