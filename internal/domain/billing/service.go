package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pacopilot/pacopilot/internal/domain/identity"
)

// PatientSource is the subset of the identity repository enrollment needs to
// resolve the owning patient.
type PatientSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetByExternalID(ctx context.Context, externalID string) (*identity.Patient, error)
}

type Service struct {
	coverages CoverageRepository
	patients  PatientSource
}

func NewService(coverages CoverageRepository, patients PatientSource) *Service {
	return &Service{coverages: coverages, patients: patients}
}

// EnrollCoverageInput carries caller-supplied enrollment fields. PatientIdent
// may be the patient's canonical UUID or their external id.
type EnrollCoverageInput struct {
	ExternalID   string `json:"external_id"`
	PatientIdent string `json:"patient_id"`
	PayerName    string `json:"payer_name"`
	PlanName     string `json:"plan_name"`
	MemberID     string `json:"member_id"`
}

// EnrollCoverage resolves the owning patient and persists a new coverage row.
func (s *Service) EnrollCoverage(ctx context.Context, in EnrollCoverageInput) (*Coverage, error) {
	if in.ExternalID == "" {
		return nil, fmt.Errorf("external_id is required")
	}
	if in.PatientIdent == "" {
		return nil, fmt.Errorf("patient_id is required")
	}
	if in.PayerName == "" {
		return nil, fmt.Errorf("payer_name is required")
	}
	if in.MemberID == "" {
		return nil, fmt.Errorf("member_id is required")
	}

	patientID, err := s.resolvePatient(ctx, in.PatientIdent)
	if err != nil {
		return nil, err
	}

	c := &Coverage{
		ExternalID: in.ExternalID,
		PatientID:  patientID,
		PayerName:  in.PayerName,
		PlanName:   in.PlanName,
		MemberID:   in.MemberID,
	}
	if err := s.coverages.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// resolvePatient tries canonical UUID first, then external id.
func (s *Service) resolvePatient(ctx context.Context, ident string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ident); err == nil {
		p, err := s.patients.GetByID(ctx, id)
		if err == nil {
			return p.ID, nil
		}
		if !errors.Is(err, identity.ErrNotFound) {
			return uuid.Nil, err
		}
	}
	p, err := s.patients.GetByExternalID(ctx, ident)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (s *Service) GetCoverage(ctx context.Context, id uuid.UUID) (*Coverage, error) {
	return s.coverages.GetByID(ctx, id)
}

// GetCoverageByIdent resolves a coverage from a UUID, an external identifier,
// or a member id, in that order.
func (s *Service) GetCoverageByIdent(ctx context.Context, ident string) (*Coverage, error) {
	if id, err := uuid.Parse(ident); err == nil {
		if c, err := s.coverages.GetByID(ctx, id); err == nil {
			return c, nil
		} else if err != ErrNotFound {
			return nil, err
		}
	}
	if c, err := s.coverages.GetByExternalID(ctx, ident); err == nil {
		return c, nil
	} else if err != ErrNotFound {
		return nil, err
	}
	return s.coverages.GetByMemberID(ctx, ident)
}

func (s *Service) ListCoverages(ctx context.Context, limit, offset int) ([]*Coverage, int, error) {
	return s.coverages.List(ctx, limit, offset)
}

func (s *Service) ListCoveragesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Coverage, int, error) {
	return s.coverages.ListByPatient(ctx, patientID, limit, offset)
}
