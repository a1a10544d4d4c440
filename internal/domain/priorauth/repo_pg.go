package priorauth

import (
	"context"
	"errors"
	"fmt"

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

// mapConstraintError converts pg constraint violations into the package's
// caller-attributable error type. 23503 is a foreign key miss, 23505 a
// uniqueness collision.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503", "23505":
			return &ConstraintError{Constraint: pgErr.ConstraintName, Detail: pgErr.Detail}
		}
	}
	return err
}

// =========== Request Repository ===========

type requestRepoPG struct{ pool *pgxpool.Pool }

func NewRequestRepoPG(pool *pgxpool.Pool) RequestRepository { return &requestRepoPG{pool: pool} }

func (r *requestRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const reqCols = `id, patient_id, coverage_id, code, diagnosis_codes, status, disposition, created_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.PatientID, &req.CoverageID, &req.Code, &req.DiagnosisCodes,
		&req.Status, &req.Disposition, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if req.DiagnosisCodes == nil {
		req.DiagnosisCodes = []string{}
	}
	return &req, nil
}

func (r *requestRepoPG) Create(ctx context.Context, req *Request) error {
	req.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prior_auth_requests (id, patient_id, coverage_id, code, diagnosis_codes, status, disposition)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		req.ID, req.PatientID, req.CoverageID, req.Code, req.DiagnosisCodes, req.Status, req.Disposition)
	return mapConstraintError(err)
}

func (r *requestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx, `SELECT `+reqCols+` FROM prior_auth_requests WHERE id = $1`, id))
}

func (r *requestRepoPG) List(ctx context.Context, status Status, limit, offset int) ([]*Request, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prior_auth_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM prior_auth_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		reqCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectRequests(rows, total)
}

func (r *requestRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, status Status, limit, offset int) ([]*Request, int, error) {
	where := ` WHERE patient_id = $1`
	args := []interface{}{patientID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prior_auth_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM prior_auth_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		reqCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectRequests(rows, total)
}

func collectRequests(rows pgx.Rows, total int) ([]*Request, int, error) {
	var items []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, rows.Err()
}

// =========== Override Repository ===========

type overrideRepoPG struct{ pool *pgxpool.Pool }

func NewOverrideRepoPG(pool *pgxpool.Pool) OverrideRepository { return &overrideRepoPG{pool: pool} }

func (r *overrideRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const overrideCols = `id, code, coverage_id, action, reason, created_at`

func scanOverride(row pgx.Row) (*PolicyOverride, error) {
	var o PolicyOverride
	err := row.Scan(&o.ID, &o.Code, &o.CoverageID, &o.Action, &o.Reason, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOverrideNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *overrideRepoPG) Create(ctx context.Context, o *PolicyOverride) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO policy_overrides (id, code, coverage_id, action, reason)
		VALUES ($1,$2,$3,$4,$5)`,
		o.ID, o.Code, o.CoverageID, o.Action, o.Reason)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateOverride
	}
	return mapConstraintError(err)
}

func (r *overrideRepoPG) GetByCodeAndCoverage(ctx context.Context, code string, coverageID uuid.UUID) (*PolicyOverride, error) {
	return scanOverride(r.conn(ctx).QueryRow(ctx,
		`SELECT `+overrideCols+` FROM policy_overrides WHERE code = $1 AND coverage_id = $2`, code, coverageID))
}

func (r *overrideRepoPG) List(ctx context.Context, limit, offset int) ([]*PolicyOverride, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM policy_overrides`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+overrideCols+` FROM policy_overrides ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*PolicyOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *overrideRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM policy_overrides WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}
