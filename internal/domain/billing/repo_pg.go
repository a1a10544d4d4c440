package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pacopilot/pacopilot/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type coverageRepoPG struct{ pool *pgxpool.Pool }

func NewCoverageRepoPG(pool *pgxpool.Pool) CoverageRepository { return &coverageRepoPG{pool: pool} }

func (r *coverageRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const covCols = `id, external_id, patient_id, payer_name, plan_name, member_id, created_at, updated_at`

func scanCoverage(row pgx.Row) (*Coverage, error) {
	var c Coverage
	err := row.Scan(&c.ID, &c.ExternalID, &c.PatientID, &c.PayerName, &c.PlanName, &c.MemberID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *coverageRepoPG) Create(ctx context.Context, c *Coverage) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO coverages (id, external_id, patient_id, payer_name, plan_name, member_id)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.ExternalID, c.PatientID, c.PayerName, c.PlanName, c.MemberID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateExternalID
	}
	return err
}

func (r *coverageRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Coverage, error) {
	return scanCoverage(r.conn(ctx).QueryRow(ctx, `SELECT `+covCols+` FROM coverages WHERE id = $1`, id))
}

func (r *coverageRepoPG) GetByExternalID(ctx context.Context, externalID string) (*Coverage, error) {
	return scanCoverage(r.conn(ctx).QueryRow(ctx, `SELECT `+covCols+` FROM coverages WHERE external_id = $1`, externalID))
}

func (r *coverageRepoPG) GetByMemberID(ctx context.Context, memberID string) (*Coverage, error) {
	// member_id is not unique; take the most recent enrollment.
	return scanCoverage(r.conn(ctx).QueryRow(ctx, `SELECT `+covCols+` FROM coverages WHERE member_id = $1 ORDER BY created_at DESC LIMIT 1`, memberID))
}

func (r *coverageRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Coverage, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM coverages WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+covCols+` FROM coverages WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func (r *coverageRepoPG) List(ctx context.Context, limit, offset int) ([]*Coverage, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM coverages`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+covCols+` FROM coverages ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func collect(rows pgx.Rows, total int) ([]*Coverage, int, error) {
	var items []*Coverage
	for rows.Next() {
		c, err := scanCoverage(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
