package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pacopilot/pacopilot/internal/domain/identity"
)

// -- Mock repositories --

type mockCoverageRepo struct {
	items map[uuid.UUID]*Coverage
}

func newMockCoverageRepo() *mockCoverageRepo {
	return &mockCoverageRepo{items: make(map[uuid.UUID]*Coverage)}
}

func (m *mockCoverageRepo) Create(_ context.Context, c *Coverage) error {
	for _, existing := range m.items {
		if existing.ExternalID == c.ExternalID {
			return ErrDuplicateExternalID
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	m.items[c.ID] = c
	return nil
}

func (m *mockCoverageRepo) GetByID(_ context.Context, id uuid.UUID) (*Coverage, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockCoverageRepo) GetByExternalID(_ context.Context, externalID string) (*Coverage, error) {
	for _, c := range m.items {
		if c.ExternalID == externalID {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockCoverageRepo) GetByMemberID(_ context.Context, memberID string) (*Coverage, error) {
	for _, c := range m.items {
		if c.MemberID == memberID {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockCoverageRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Coverage, int, error) {
	var result []*Coverage
	for _, c := range m.items {
		if c.PatientID == patientID {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

func (m *mockCoverageRepo) List(_ context.Context, limit, offset int) ([]*Coverage, int, error) {
	var result []*Coverage
	for _, c := range m.items {
		result = append(result, c)
	}
	return result, len(result), nil
}

type mockPatientSource struct {
	patients map[uuid.UUID]*identity.Patient
}

func newMockPatientSource() *mockPatientSource {
	return &mockPatientSource{patients: make(map[uuid.UUID]*identity.Patient)}
}

func (m *mockPatientSource) add(externalID string) *identity.Patient {
	p := &identity.Patient{ID: uuid.New(), ExternalID: externalID}
	m.patients[p.ID] = p
	return p
}

func (m *mockPatientSource) GetByID(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return p, nil
}

func (m *mockPatientSource) GetByExternalID(_ context.Context, externalID string) (*identity.Patient, error) {
	for _, p := range m.patients {
		if p.ExternalID == externalID {
			return p, nil
		}
	}
	return nil, identity.ErrNotFound
}

// -- Tests --

type fixture struct {
	svc      *Service
	patients *mockPatientSource
}

func newFixture() *fixture {
	patients := newMockPatientSource()
	return &fixture{
		svc:      NewService(newMockCoverageRepo(), patients),
		patients: patients,
	}
}

func (f *fixture) enroll(t *testing.T, externalID, patientIdent string) *Coverage {
	t.Helper()
	c, err := f.svc.EnrollCoverage(context.Background(), EnrollCoverageInput{
		ExternalID:   externalID,
		PatientIdent: patientIdent,
		PayerName:    "Acme Health",
		PlanName:     "PPO",
		MemberID:     "MEM-" + externalID,
	})
	if err != nil {
		t.Fatalf("enroll %s: %v", externalID, err)
	}
	return c
}

func TestEnrollCoverage_PatientByUUID(t *testing.T) {
	f := newFixture()
	p := f.patients.add("PAT-1")

	c := f.enroll(t, "COV-1", p.ID.String())
	if c.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if c.PatientID != p.ID {
		t.Error("expected coverage bound to the resolved patient")
	}
}

func TestEnrollCoverage_PatientByExternalID(t *testing.T) {
	f := newFixture()
	p := f.patients.add("PAT-2")

	c := f.enroll(t, "COV-2", "PAT-2")
	if c.PatientID != p.ID {
		t.Error("expected external id to resolve to the patient")
	}
}

func TestEnrollCoverage_UnresolvablePatient(t *testing.T) {
	f := newFixture()
	_, err := f.svc.EnrollCoverage(context.Background(), EnrollCoverageInput{
		ExternalID:   "COV-3",
		PatientIdent: "PAT-missing",
		PayerName:    "Acme Health",
		MemberID:     "MEM-3",
	})
	if err != identity.ErrNotFound {
		t.Errorf("expected identity.ErrNotFound, got %v", err)
	}
}

func TestEnrollCoverage_Validation(t *testing.T) {
	f := newFixture()
	p := f.patients.add("PAT-4")

	cases := []EnrollCoverageInput{
		{PatientIdent: p.ID.String(), PayerName: "Acme", MemberID: "M"},   // no external_id
		{ExternalID: "COV-4", PayerName: "Acme", MemberID: "M"},           // no patient
		{ExternalID: "COV-4", PatientIdent: p.ID.String(), MemberID: "M"}, // no payer
		{ExternalID: "COV-4", PatientIdent: p.ID.String(), PayerName: "Acme"}, // no member_id
	}
	for i, in := range cases {
		if _, err := f.svc.EnrollCoverage(context.Background(), in); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestEnrollCoverage_DuplicateExternalID(t *testing.T) {
	f := newFixture()
	p := f.patients.add("PAT-5")
	f.enroll(t, "COV-5", p.ID.String())

	_, err := f.svc.EnrollCoverage(context.Background(), EnrollCoverageInput{
		ExternalID:   "COV-5",
		PatientIdent: p.ID.String(),
		PayerName:    "Acme Health",
		MemberID:     "MEM-5b",
	})
	if err != ErrDuplicateExternalID {
		t.Errorf("expected ErrDuplicateExternalID, got %v", err)
	}
}

func TestGetCoverageByIdent_UUID(t *testing.T) {
	f := newFixture()
	p := f.patients.add("PAT-6")
	c := f.enroll(t, "COV-6", p.ID.String())

	fetched, err := f.svc.GetCoverageByIdent(context.Background(), c.ID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.ID != c.ID {
		t.Error("unexpected ID mismatch")
	}
}

func TestGetCoverageByIdent_ExternalID(t *testing.T) {
	f := newFixture()
	p := f.patients.add("PAT-7")
	c := f.enroll(t, "COV-7", p.ID.String())

	fetched, err := f.svc.GetCoverageByIdent(context.Background(), "COV-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.ID != c.ID {
		t.Error("unexpected ID mismatch")
	}
}

func TestGetCoverageByIdent_MemberID(t *testing.T) {
	f := newFixture()
	p := f.patients.add("PAT-8")
	c := f.enroll(t, "COV-8", p.ID.String())

	fetched, err := f.svc.GetCoverageByIdent(context.Background(), "MEM-COV-8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.ID != c.ID {
		t.Error("unexpected ID mismatch")
	}
}

func TestGetCoverageByIdent_ExternalIDBeatsMemberID(t *testing.T) {
	// A value that is some row's external_id and another row's member_id
	// resolves to the external_id owner.
	f := newFixture()
	p := f.patients.add("PAT-9")

	byMember, err := f.svc.EnrollCoverage(context.Background(), EnrollCoverageInput{
		ExternalID:   "COV-9",
		PatientIdent: p.ID.String(),
		PayerName:    "Acme Health",
		MemberID:     "SHARED",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byExternal := f.enroll(t, "SHARED", p.ID.String())

	fetched, err := f.svc.GetCoverageByIdent(context.Background(), "SHARED")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.ID != byExternal.ID || fetched.ID == byMember.ID {
		t.Error("expected external_id match to win over member_id")
	}
}

func TestGetCoverageByIdent_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GetCoverageByIdent(context.Background(), "COV-missing")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListCoveragesByPatient(t *testing.T) {
	f := newFixture()
	p := f.patients.add("PAT-10")
	other := f.patients.add("PAT-11")
	f.enroll(t, "COV-10", p.ID.String())
	f.enroll(t, "COV-11", p.ID.String())
	f.enroll(t, "COV-12", other.ID.String())

	items, total, err := f.svc.ListCoveragesByPatient(context.Background(), p.ID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 coverages, got total=%d len=%d", total, len(items))
	}
}
