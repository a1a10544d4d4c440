package billing

import (
	"time"

	"github.com/google/uuid"
)

// Coverage is an insurance plan enrollment for a patient. ExternalID is the
// caller-facing business key; MemberID is the payer-issued card number and is
// unique per payer but not guaranteed unique across payers, so it is only the
// last resort when resolving an identifier.
type Coverage struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ExternalID string    `db:"external_id" json:"external_id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	PayerName  string    `db:"payer_name" json:"payer_name"`
	PlanName   string    `db:"plan_name" json:"plan_name"`
	MemberID   string    `db:"member_id" json:"member_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
