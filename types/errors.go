package types

import (
	"errors"
	"fmt"
)

// ErrCancelled marks a unit that was skipped because the run was cancelled
// before the unit could execute.
var ErrCancelled = errors.New("cancelled")

// AuthorizationError means the delegation call was denied outright.
// It is not retried; it surfaces as the failing unit's error.
type AuthorizationError struct {
	RoleARN string
	Err     error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role assume denied for %s: %v", e.RoleARN, e.Err)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// DelegationError covers any other failure of the delegation call.
type DelegationError struct {
	RoleARN string
	Err     error
}

func (e *DelegationError) Error() string {
	return fmt.Sprintf("role assume failed for %s: %v", e.RoleARN, e.Err)
}

func (e *DelegationError) Unwrap() error { return e.Err }

// CollectionError means the primary listing call for one unit failed after
// credentials were already valid. It is isolated to its unit.
type CollectionError struct {
	Service   string
	AccountID string
	Region    string
	Err       error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collecting %s in %s for account %s: %v",
		e.Service, e.Region, e.AccountID, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

// ConfigurationError aborts a run before any unit executes.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}
