package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	patients PatientRepository
}

func NewService(patients PatientRepository) *Service {
	return &Service{patients: patients}
}

// RegisterPatient validates and persists a new patient. The external
// identifier is mandatory and unique; it never changes after registration.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	if p.ExternalID == "" {
		return fmt.Errorf("external_id is required")
	}
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if p.BirthDate == "" {
		return fmt.Errorf("birth_date is required")
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// GetPatientByIdent accepts either a canonical UUID or an external
// identifier. A UUID-shaped string that matches an existing row wins over
// the external-key path.
func (s *Service) GetPatientByIdent(ctx context.Context, ident string) (*Patient, error) {
	if id, err := uuid.Parse(ident); err == nil {
		if p, err := s.patients.GetByID(ctx, id); err == nil {
			return p, nil
		} else if err != ErrNotFound {
			return nil, err
		}
	}
	return s.patients.GetByExternalID(ctx, ident)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}
