package priorauth

import "fmt"

// NotFoundError reports which entity an identifier failed to resolve to.
// Entity is a lowercase noun ("patient", "coverage", "request").
type NotFoundError struct {
	Entity string
	Ident  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Ident)
}

// ConstraintError reports a database constraint rejection on write, mapped
// from the driver's foreign-key and uniqueness violations.
type ConstraintError struct {
	Constraint string
	Detail     string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint violation (%s): %s", e.Constraint, e.Detail)
}
