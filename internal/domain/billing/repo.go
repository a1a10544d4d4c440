package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repository lookups that match no coverage.
var ErrNotFound = errors.New("coverage not found")

// ErrDuplicateExternalID is returned when a create would violate the
// external_id uniqueness constraint.
var ErrDuplicateExternalID = errors.New("coverage external_id already exists")

type CoverageRepository interface {
	Create(ctx context.Context, c *Coverage) error
	GetByID(ctx context.Context, id uuid.UUID) (*Coverage, error)
	GetByExternalID(ctx context.Context, externalID string) (*Coverage, error)
	GetByMemberID(ctx context.Context, memberID string) (*Coverage, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Coverage, int, error)
	List(ctx context.Context, limit, offset int) ([]*Coverage, int, error)
}
