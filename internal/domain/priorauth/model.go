package priorauth

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an authorization request. The initial
// state is decided at creation time by the decision policy; requested is
// reserved for requests re-opened for resubmission.
type Status string

const (
	StatusRequested   Status = "requested"
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusDenied      Status = "denied"
	StatusNotRequired Status = "not_required"
)

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusPending, StatusApproved, StatusDenied, StatusNotRequired:
		return true
	}
	return false
}

// Request is a persisted prior-authorization request. Disposition is the
// human-readable explanation that accompanies the status.
type Request struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	CoverageID     uuid.UUID `db:"coverage_id" json:"coverage_id"`
	Code           string    `db:"code" json:"code"`
	DiagnosisCodes []string  `db:"diagnosis_codes" json:"diagnosis_codes"`
	Status         Status    `db:"status" json:"status"`
	Disposition    string    `db:"disposition" json:"disposition"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Requirements is the documentation demand for a procedure code. It is
// computed from the catalog on every read and never persisted.
type Requirements struct {
	RequiresAuth bool     `json:"requires_auth"`
	RequiredDocs []string `json:"required_docs"`
}

// RequestWithRequirements is the API shape for a request: the stored row
// plus the current catalog answer for its procedure code.
type RequestWithRequirements struct {
	*Request
	RequiresAuth bool     `json:"requires_auth"`
	RequiredDocs []string `json:"required_docs"`
}

// OverrideAction is what a policy override does to a request that would
// otherwise go to clinical review.
type OverrideAction string

const (
	ActionApprove OverrideAction = "approve"
	ActionDeny    OverrideAction = "deny"
)

func (a OverrideAction) Valid() bool {
	return a == ActionApprove || a == ActionDeny
}

// PolicyOverride short-circuits review for a (procedure code, coverage)
// pair. Reason, when set, becomes the request disposition.
type PolicyOverride struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	Code       string         `db:"code" json:"code"`
	CoverageID uuid.UUID      `db:"coverage_id" json:"coverage_id"`
	Action     OverrideAction `db:"action" json:"action"`
	Reason     string         `db:"reason" json:"reason"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
