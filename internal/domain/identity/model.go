package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient is the canonical identity record. ExternalID is the caller-facing
// business key (e.g. an MRN); it is unique and immutable once assigned.
type Patient struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ExternalID string    `db:"external_id" json:"external_id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	BirthDate  string    `db:"birth_date" json:"birth_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// FullName returns "First Last" with surrounding whitespace trimmed.
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
