package priorauth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrRequestNotFound is returned by repository lookups that match no request.
var ErrRequestNotFound = errors.New("prior auth request not found")

// ErrOverrideNotFound is returned when no override exists for a
// (code, coverage) pair.
var ErrOverrideNotFound = errors.New("policy override not found")

// ErrDuplicateOverride is returned when a create would violate the
// (code, coverage_id) uniqueness constraint.
var ErrDuplicateOverride = errors.New("policy override already exists for code and coverage")

type RequestRepository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	// List filters by status when status is non-empty.
	List(ctx context.Context, status Status, limit, offset int) ([]*Request, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, status Status, limit, offset int) ([]*Request, int, error)
}

type OverrideRepository interface {
	Create(ctx context.Context, o *PolicyOverride) error
	GetByCodeAndCoverage(ctx context.Context, code string, coverageID uuid.UUID) (*PolicyOverride, error)
	List(ctx context.Context, limit, offset int) ([]*PolicyOverride, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
