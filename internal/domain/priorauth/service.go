package priorauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateRequestInput is the caller's view of a new request. Patient and
// coverage may be named by canonical UUID or by business key; the resolver
// sorts it out.
type CreateRequestInput struct {
	PatientIdent   string   `json:"patient_ident"`
	CoverageIdent  string   `json:"coverage_ident"`
	Code           string   `json:"code"`
	DiagnosisCodes []string `json:"diagnosis_codes"`
}

type Service struct {
	requests  RequestRepository
	overrides OverrideRepository
	resolver  *Resolver
	catalog   *Catalog
	policy    *Policy
}

func NewService(requests RequestRepository, overrides OverrideRepository, resolver *Resolver, catalog *Catalog) *Service {
	return &Service{
		requests:  requests,
		overrides: overrides,
		resolver:  resolver,
		catalog:   catalog,
		policy:    NewPolicy(overrides),
	}
}

// CreateRequest assembles and persists a prior-authorization request:
// resolve both identifiers, consult the catalog, run the decision policy,
// then write. Any resolution failure aborts before the insert, so a failed
// create leaves the store untouched.
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (*RequestWithRequirements, error) {
	if in.Code == "" {
		return nil, fmt.Errorf("code is required")
	}
	if in.PatientIdent == "" {
		return nil, fmt.Errorf("patient_ident is required")
	}
	if in.CoverageIdent == "" {
		return nil, fmt.Errorf("coverage_ident is required")
	}

	patient, err := s.resolver.ResolvePatient(ctx, in.PatientIdent)
	if err != nil {
		return nil, err
	}
	coverage, err := s.resolver.ResolveCoverage(ctx, in.CoverageIdent)
	if err != nil {
		return nil, err
	}

	reqs := s.catalog.Lookup(in.Code)
	decision, err := s.policy.Decide(ctx, in.Code, coverage.ID, reqs)
	if err != nil {
		return nil, err
	}

	diagnoses := in.DiagnosisCodes
	if diagnoses == nil {
		diagnoses = []string{}
	}
	req := &Request{
		PatientID:      patient.ID,
		CoverageID:     coverage.ID,
		Code:           in.Code,
		DiagnosisCodes: diagnoses,
		Status:         decision.Status,
		Disposition:    decision.Disposition,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return s.withRequirements(req), nil
}

// GetRequest reads a request and recomputes its requirements through the
// catalog; the documentation demand is never stored.
func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*RequestWithRequirements, error) {
	req, err := s.requests.GetByID(ctx, id)
	if errors.Is(err, ErrRequestNotFound) {
		return nil, &NotFoundError{Entity: "request", Ident: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return s.withRequirements(req), nil
}

func (s *Service) ListRequests(ctx context.Context, status Status, limit, offset int) ([]*RequestWithRequirements, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, fmt.Errorf("invalid status: %s", status)
	}
	items, total, err := s.requests.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return s.withRequirementsAll(items), total, nil
}

func (s *Service) ListRequestsByPatient(ctx context.Context, patientID uuid.UUID, status Status, limit, offset int) ([]*RequestWithRequirements, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, fmt.Errorf("invalid status: %s", status)
	}
	items, total, err := s.requests.ListByPatient(ctx, patientID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return s.withRequirementsAll(items), total, nil
}

// Requirements is the catalog passthrough for callers checking a code
// before submitting anything.
func (s *Service) Requirements(code string) Requirements {
	return s.catalog.Lookup(code)
}

func (s *Service) withRequirements(req *Request) *RequestWithRequirements {
	reqs := s.catalog.Lookup(req.Code)
	return &RequestWithRequirements{
		Request:      req,
		RequiresAuth: reqs.RequiresAuth,
		RequiredDocs: reqs.RequiredDocs,
	}
}

func (s *Service) withRequirementsAll(items []*Request) []*RequestWithRequirements {
	result := make([]*RequestWithRequirements, len(items))
	for i, req := range items {
		result[i] = s.withRequirements(req)
	}
	return result
}

// -- Overrides --

func (s *Service) CreateOverride(ctx context.Context, o *PolicyOverride) error {
	if o.Code == "" {
		return fmt.Errorf("code is required")
	}
	if o.CoverageID == uuid.Nil {
		return fmt.Errorf("coverage_id is required")
	}
	if !o.Action.Valid() {
		return fmt.Errorf("invalid override action: %s", o.Action)
	}
	return s.overrides.Create(ctx, o)
}

func (s *Service) ListOverrides(ctx context.Context, limit, offset int) ([]*PolicyOverride, int, error) {
	return s.overrides.List(ctx, limit, offset)
}

func (s *Service) DeleteOverride(ctx context.Context, id uuid.UUID) error {
	return s.overrides.Delete(ctx, id)
}
