// Package errs defines the error taxonomy shared by the enforcement
// pipeline and the orchestrator (spec.md §7). These are sentinel kinds,
// not a class hierarchy: callers compare with errors.Is/errors.As the
// same way the teacher's injectproxy package compares ErrQueryParse,
// ErrIllegalLabelMatcher and ErrEnforceLabel.
package errs

import "fmt"

// UnauthorizedLabelValue is returned when the Operator Enforcer refuses a
// value the constraint map does not admit. Fatal for the request.
type UnauthorizedLabelValue struct {
	Label string
	Value string
}

func (e *UnauthorizedLabelValue) Error() string {
	return fmt.Sprintf("unauthorized value %q for label %q", e.Value, e.Label)
}

// UnauthorizedLabelAccess is returned when a LABEL_VALUES/TAG_VALUES
// target names a label the principal cannot see at all.
type UnauthorizedLabelAccess struct {
	Label string
}

func (e *UnauthorizedLabelAccess) Error() string {
	return fmt.Sprintf("unauthorized access to label %q", e.Label)
}

// ServiceNotConfigured is returned when no constraints exist for
// (principal, service).
type ServiceNotConfigured struct {
	Service string
}

func (e *ServiceNotConfigured) Error() string {
	return fmt.Sprintf("service %q is not configured for this principal", e.Service)
}

// MalformedInput is returned when the lexer/parser limits are exceeded or
// a quote/brace is unbalanced. The pipeline returns an empty result
// alongside this error; the orchestrator must map it to a 400-equivalent.
type MalformedInput struct {
	Reason string
}

func (e *MalformedInput) Error() string {
	return fmt.Sprintf("malformed input: %s", e.Reason)
}

// ConfigUnavailable is returned when the store cannot read its
// configuration file on first load. Reload failures do not produce this
// error — they keep the previous snapshot live and log a warning instead.
type ConfigUnavailable struct {
	Err error
}

func (e *ConfigUnavailable) Error() string {
	return fmt.Sprintf("configuration unavailable: %v", e.Err)
}

func (e *ConfigUnavailable) Unwrap() error { return e.Err }
