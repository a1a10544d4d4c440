package priorauth

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRequestRepo struct {
	items map[uuid.UUID]*Request
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{items: make(map[uuid.UUID]*Request)}
}

func (m *mockRequestRepo) Create(_ context.Context, r *Request) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.items[r.ID] = r
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	r, ok := m.items[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return r, nil
}

func (m *mockRequestRepo) List(_ context.Context, status Status, limit, offset int) ([]*Request, int, error) {
	var result []*Request
	for _, r := range m.items {
		if status == "" || r.Status == status {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

func (m *mockRequestRepo) ListByPatient(_ context.Context, patientID uuid.UUID, status Status, limit, offset int) ([]*Request, int, error) {
	var result []*Request
	for _, r := range m.items {
		if r.PatientID != patientID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		result = append(result, r)
	}
	return result, len(result), nil
}

type serviceFixture struct {
	svc       *Service
	requests  *mockRequestRepo
	overrides *mockOverrideRepo
	patients  *mockPatientSource
	coverages *mockCoverageSource
}

func newServiceFixture() *serviceFixture {
	requests := newMockRequestRepo()
	overrides := newMockOverrideRepo()
	patients := newMockPatientSource()
	coverages := newMockCoverageSource()
	resolver := NewResolver(patients, coverages)
	return &serviceFixture{
		svc:       NewService(requests, overrides, resolver, DefaultCatalog()),
		requests:  requests,
		overrides: overrides,
		patients:  patients,
		coverages: coverages,
	}
}

func TestCreateRequest_PendingForKnownCode(t *testing.T) {
	f := newServiceFixture()
	p := f.patients.add("MRN-1")
	c := f.coverages.add("COV-1", "MEM-1", p.ID)

	got, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		PatientIdent:   "MRN-1",
		CoverageIdent:  "COV-1",
		Code:           "70551",
		DiagnosisCodes: []string{"G43.909"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("expected pending, got %s", got.Status)
	}
	if got.Disposition != DispositionPending {
		t.Errorf("expected %q, got %q", DispositionPending, got.Disposition)
	}
	if got.PatientID != p.ID || got.CoverageID != c.ID {
		t.Error("request must carry resolved canonical ids")
	}
	if !got.RequiresAuth {
		t.Error("70551 requires authorization")
	}
	if !reflect.DeepEqual(got.RequiredDocs, []string{"Clinical notes", "Recent imaging"}) {
		t.Errorf("unexpected docs: %v", got.RequiredDocs)
	}
}

func TestCreateRequest_NotRequired(t *testing.T) {
	f := newServiceFixture()
	p := f.patients.add("MRN-2")
	f.coverages.add("COV-2", "MEM-2", p.ID)

	got, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		PatientIdent:  "MRN-2",
		CoverageIdent: "COV-2",
		Code:          "97110",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusNotRequired {
		t.Errorf("expected not_required, got %s", got.Status)
	}
	if got.Disposition != "" {
		t.Errorf("expected empty disposition, got %q", got.Disposition)
	}
	if got.RequiresAuth {
		t.Error("97110 must not require authorization")
	}
	if len(got.RequiredDocs) != 0 {
		t.Errorf("expected no docs, got %v", got.RequiredDocs)
	}
}

func TestCreateRequest_OverrideApproves(t *testing.T) {
	f := newServiceFixture()
	p := f.patients.add("MRN-3")
	c := f.coverages.add("COV-3", "MEM-3", p.ID)
	f.overrides.Create(context.Background(), &PolicyOverride{Code: "70553", CoverageID: c.ID, Action: ActionApprove})

	got, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		PatientIdent:  p.ID.String(),
		CoverageIdent: "MEM-3",
		Code:          "70553",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusApproved {
		t.Errorf("expected approved, got %s", got.Status)
	}
	if got.Disposition != DispositionApproved {
		t.Errorf("expected %q, got %q", DispositionApproved, got.Disposition)
	}
}

func TestCreateRequest_UnknownCodeConservative(t *testing.T) {
	f := newServiceFixture()
	p := f.patients.add("MRN-4")
	f.coverages.add("COV-4", "MEM-4", p.ID)

	got, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		PatientIdent:  "MRN-4",
		CoverageIdent: "COV-4",
		Code:          "55555",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("unknown code must queue for review, got %s", got.Status)
	}
	if !reflect.DeepEqual(got.RequiredDocs, []string{"Clinical notes"}) {
		t.Errorf("unknown code docs = %v, want [Clinical notes]", got.RequiredDocs)
	}
}

func TestCreateRequest_UnresolvablePatientWritesNothing(t *testing.T) {
	f := newServiceFixture()
	p := f.patients.add("MRN-5")
	f.coverages.add("COV-5", "MEM-5", p.ID)

	_, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		PatientIdent:  "MRN-ghost",
		CoverageIdent: "COV-5",
		Code:          "70551",
	})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if nf.Entity != "patient" {
		t.Errorf("expected patient entity, got %s", nf.Entity)
	}
	if len(f.requests.items) != 0 {
		t.Error("a failed create must not persist anything")
	}
}

func TestCreateRequest_UnresolvableCoverageWritesNothing(t *testing.T) {
	f := newServiceFixture()
	f.patients.add("MRN-6")

	_, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		PatientIdent:  "MRN-6",
		CoverageIdent: "COV-ghost",
		Code:          "70551",
	})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if nf.Entity != "coverage" {
		t.Errorf("expected coverage entity, got %s", nf.Entity)
	}
	if len(f.requests.items) != 0 {
		t.Error("a failed create must not persist anything")
	}
}

func TestCreateRequest_CodeRequired(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		PatientIdent:  "MRN-1",
		CoverageIdent: "COV-1",
	})
	if err == nil {
		t.Error("expected error for missing code")
	}
}

func TestGetRequest_RecomputesRequirements(t *testing.T) {
	f := newServiceFixture()
	p := f.patients.add("MRN-7")
	f.coverages.add("COV-7", "MEM-7", p.ID)

	created, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		PatientIdent:  "MRN-7",
		CoverageIdent: "COV-7",
		Code:          "70553",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.svc.GetRequest(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.RequiresAuth {
		t.Error("expected requires_auth on read")
	}
	if !reflect.DeepEqual(got.RequiredDocs, []string{"Clinical notes", "Neurology consult", "Previous MRI"}) {
		t.Errorf("unexpected docs: %v", got.RequiredDocs)
	}
}

func TestGetRequest_NotFound(t *testing.T) {
	f := newServiceFixture()
	id := uuid.New()
	_, err := f.svc.GetRequest(context.Background(), id)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if nf.Entity != "request" || nf.Ident != id.String() {
		t.Errorf("error must name entity and ident, got %+v", nf)
	}
}

func TestListRequests_StatusFilter(t *testing.T) {
	f := newServiceFixture()
	p := f.patients.add("MRN-8")
	f.coverages.add("COV-8", "MEM-8", p.ID)

	f.svc.CreateRequest(context.Background(), CreateRequestInput{PatientIdent: "MRN-8", CoverageIdent: "COV-8", Code: "70551"})
	f.svc.CreateRequest(context.Background(), CreateRequestInput{PatientIdent: "MRN-8", CoverageIdent: "COV-8", Code: "97110"})

	pending, total, err := f.svc.ListRequests(context.Background(), StatusPending, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(pending) != 1 {
		t.Errorf("expected 1 pending request, got total=%d len=%d", total, len(pending))
	}

	all, total, err := f.svc.ListRequests(context.Background(), "", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("expected 2 requests, got total=%d len=%d", total, len(all))
	}
}

func TestListRequests_InvalidStatus(t *testing.T) {
	f := newServiceFixture()
	_, _, err := f.svc.ListRequests(context.Background(), Status("bogus"), 20, 0)
	if err == nil {
		t.Error("expected error for invalid status filter")
	}
}

func TestListRequestsByPatient_StatusFilter(t *testing.T) {
	// Supplying both a patient and a status narrows to their intersection.
	f := newServiceFixture()
	p := f.patients.add("MRN-9")
	f.coverages.add("COV-9", "MEM-9", p.ID)
	other := f.patients.add("MRN-10")
	f.coverages.add("COV-10", "MEM-10", other.ID)

	f.svc.CreateRequest(context.Background(), CreateRequestInput{PatientIdent: "MRN-9", CoverageIdent: "COV-9", Code: "70551"})
	f.svc.CreateRequest(context.Background(), CreateRequestInput{PatientIdent: "MRN-9", CoverageIdent: "COV-9", Code: "97110"})
	f.svc.CreateRequest(context.Background(), CreateRequestInput{PatientIdent: "MRN-10", CoverageIdent: "COV-10", Code: "70551"})

	pending, total, err := f.svc.ListRequestsByPatient(context.Background(), p.ID, StatusPending, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(pending) != 1 {
		t.Errorf("expected 1 pending request for patient, got total=%d len=%d", total, len(pending))
	}

	all, total, err := f.svc.ListRequestsByPatient(context.Background(), p.ID, "", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("expected 2 requests for patient, got total=%d len=%d", total, len(all))
	}

	_, _, err = f.svc.ListRequestsByPatient(context.Background(), p.ID, Status("bogus"), 20, 0)
	if err == nil {
		t.Error("expected error for invalid status filter")
	}
}

func TestCreateOverride_Validation(t *testing.T) {
	f := newServiceFixture()
	err := f.svc.CreateOverride(context.Background(), &PolicyOverride{CoverageID: uuid.New(), Action: ActionApprove})
	if err == nil {
		t.Error("expected error for missing code")
	}
	err = f.svc.CreateOverride(context.Background(), &PolicyOverride{Code: "70551", CoverageID: uuid.New(), Action: "escalate"})
	if err == nil {
		t.Error("expected error for invalid action")
	}
}

func TestCreateOverride_Duplicate(t *testing.T) {
	f := newServiceFixture()
	coverageID := uuid.New()
	o := &PolicyOverride{Code: "70551", CoverageID: coverageID, Action: ActionApprove}
	if err := f.svc.CreateOverride(context.Background(), o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := f.svc.CreateOverride(context.Background(), &PolicyOverride{Code: "70551", CoverageID: coverageID, Action: ActionDeny})
	if !errors.Is(err, ErrDuplicateOverride) {
		t.Errorf("expected ErrDuplicateOverride, got %v", err)
	}
}
