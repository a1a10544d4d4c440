package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repository lookups that match no patient.
var ErrNotFound = errors.New("patient not found")

// ErrDuplicateExternalID is returned when a create would violate the
// external_id uniqueness constraint.
var ErrDuplicateExternalID = errors.New("patient external_id already exists")

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByExternalID(ctx context.Context, externalID string) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}
