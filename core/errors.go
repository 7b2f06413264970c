package core

import (
	"errors"
	"fmt"
)

// Failure tags attached to fallback results. Worker failures are data, not
// errors: they degrade one batch's contribution and surface in the coverage
// summary instead of aborting the run.
const (
	FailParseError         = "parse_error"
	FailIncompleteCoverage = "incomplete_coverage"
	FailSchemaViolation    = "schema_violation"
	FailNoResponse         = "no_response"
)

// InvalidConfigurationError reports unusable input (bad fps, zero workers,
// empty frame list, malformed workflow config). It always fails the run
// before any dispatch happens.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// InvalidConfiguration builds an InvalidConfigurationError for a field.
func InvalidConfiguration(field, format string, args ...any) error {
	return &InvalidConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidConfiguration reports whether err is a configuration failure.
func IsInvalidConfiguration(err error) bool {
	var ice *InvalidConfigurationError
	return errors.As(err, &ice)
}
