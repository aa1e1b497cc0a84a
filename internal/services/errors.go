package services

import "fmt"

// Service errors
var (
	ErrNoTablesSpecified = &ServiceError{Message: "no tables specified"}
	ErrEventNotFound     = &ServiceError{Message: "event not found"}
	ErrTemplateNotFound  = &ServiceError{Message: "template not found"}
	ErrCheckInDisabled   = &ServiceError{Message: "Check-in is not enabled for this event"}
	ErrDeadlinePassed    = &ServiceError{Message: "The check-in deadline for this event has passed"}
	ErrFieldsLocked      = &ServiceError{Message: "fields cannot be changed after check-ins have been recorded"}
	ErrSystemTemplate    = &ServiceError{Message: "system templates are read-only"}
	ErrTemplateExists    = &ServiceError{Message: "a template with this id already exists"}
	ErrTitleRequired     = &ServiceError{Message: "event title is required"}
	ErrInvalidQRSize     = &ServiceError{Message: "size must be between 128 and 1024"}
	ErrBaseURLMissing    = &ServiceError{Message: "base_url is not configured"}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// InvalidTableError represents an invalid table name error
type InvalidTableError struct {
	Table string
}

func (e *InvalidTableError) Error() string {
	return fmt.Sprintf("invalid table name: %s", e.Table)
}

// DefinitionError reports an unusable field or template definition
type DefinitionError struct {
	Err error
}

func (e *DefinitionError) Error() string {
	return e.Err.Error()
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}
