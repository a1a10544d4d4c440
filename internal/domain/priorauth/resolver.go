package priorauth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pacopilot/pacopilot/internal/domain/billing"
	"github.com/pacopilot/pacopilot/internal/domain/identity"
)

// PatientSource is the subset of the identity repository the resolver needs.
type PatientSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetByExternalID(ctx context.Context, externalID string) (*identity.Patient, error)
}

// CoverageSource is the subset of the billing repository the resolver needs.
type CoverageSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*billing.Coverage, error)
	GetByExternalID(ctx context.Context, externalID string) (*billing.Coverage, error)
	GetByMemberID(ctx context.Context, memberID string) (*billing.Coverage, error)
}

// Resolver turns loosely-specified identifiers from callers into rows. Each
// entity has an ordered lookup chain; a step that misses hands the value to
// the next step, and only when the whole chain misses does the caller get a
// NotFoundError naming the entity.
type Resolver struct {
	patients  PatientSource
	coverages CoverageSource
}

func NewResolver(patients PatientSource, coverages CoverageSource) *Resolver {
	return &Resolver{patients: patients, coverages: coverages}
}

type patientLookup func(ctx context.Context, ident string) (*identity.Patient, error)

// ResolvePatient tries canonical UUID first, then external id.
func (r *Resolver) ResolvePatient(ctx context.Context, ident string) (*identity.Patient, error) {
	chain := []patientLookup{
		r.patientByUUID,
		func(ctx context.Context, ident string) (*identity.Patient, error) {
			return r.patients.GetByExternalID(ctx, ident)
		},
	}
	for _, lookup := range chain {
		p, err := lookup(ctx, ident)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, identity.ErrNotFound) {
			return nil, err
		}
	}
	return nil, &NotFoundError{Entity: "patient", Ident: ident}
}

func (r *Resolver) patientByUUID(ctx context.Context, ident string) (*identity.Patient, error) {
	id, err := uuid.Parse(ident)
	if err != nil {
		return nil, identity.ErrNotFound
	}
	return r.patients.GetByID(ctx, id)
}

type coverageLookup func(ctx context.Context, ident string) (*billing.Coverage, error)

// ResolveCoverage tries canonical UUID, then external id, then member id.
// Member id comes last because it is payer-issued and not guaranteed unique.
func (r *Resolver) ResolveCoverage(ctx context.Context, ident string) (*billing.Coverage, error) {
	chain := []coverageLookup{
		r.coverageByUUID,
		func(ctx context.Context, ident string) (*billing.Coverage, error) {
			return r.coverages.GetByExternalID(ctx, ident)
		},
		func(ctx context.Context, ident string) (*billing.Coverage, error) {
			return r.coverages.GetByMemberID(ctx, ident)
		},
	}
	for _, lookup := range chain {
		c, err := lookup(ctx, ident)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, billing.ErrNotFound) {
			return nil, err
		}
	}
	return nil, &NotFoundError{Entity: "coverage", Ident: ident}
}

func (r *Resolver) coverageByUUID(ctx context.Context, ident string) (*billing.Coverage, error) {
	id, err := uuid.Parse(ident)
	if err != nil {
		return nil, billing.ErrNotFound
	}
	return r.coverages.GetByID(ctx, id)
}
