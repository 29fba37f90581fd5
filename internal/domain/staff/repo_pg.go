package staff

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardops/wardops/internal/platform/db"
	"github.com/wardops/wardops/internal/platform/fault"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct {
	pool     *pgxpool.Pool
	observer UpdateObserver
}

func NewRepoPG(pool *pgxpool.Pool) Repo {
	return &repoPG{pool: pool}
}

func (r *repoPG) SetUpdateObserver(obs UpdateObserver) { r.observer = obs }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const staffCols = `staff_id, staff_name, role, service`

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.StaffID, &s.StaffName, &s.Role, &s.Service)
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *Staff) error {
	if s.StaffID == "" {
		s.StaffID = NewID()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO staff (staff_id, staff_name, role, service)
		VALUES ($1, $2, $3, $4)`,
		s.StaffID, s.StaffName, s.Role, s.Service)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fault.Validation(tableName, s.StaffID, fmt.Sprintf("duplicate staff_id=%s", s.StaffID))
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Staff, error) {
	s, err := scanStaff(r.conn(ctx).QueryRow(ctx,
		`SELECT `+staffCols+` FROM staff WHERE staff_id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fault.NotFound(tableName, id)
		}
		return nil, err
	}
	return s, nil
}

func (r *repoPG) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM staff WHERE staff_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Staff, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1
	if f.Service != "" {
		where = append(where, fmt.Sprintf("service = $%d", idx))
		args = append(args, f.Service)
		idx++
	}
	if f.Role != "" {
		where = append(where, fmt.Sprintf("role = $%d", idx))
		args = append(args, f.Role)
		idx++
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM staff`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+staffCols+` FROM staff`+clause+
			fmt.Sprintf(` ORDER BY staff_id ASC LIMIT $%d OFFSET $%d`, idx, idx+1),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// Update fetches the old snapshot, applies the new values and fires the
// update observer on the same connection. Inside a transaction the
// observer's audit append commits or rolls back with the update itself.
func (r *repoPG) Update(ctx context.Context, s *Staff) error {
	old, err := r.GetByID(ctx, s.StaffID)
	if err != nil {
		return err
	}

	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE staff SET staff_name = $2, role = $3, service = $4
		WHERE staff_id = $1`,
		s.StaffID, s.StaffName, s.Role, s.Service)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound(tableName, s.StaffID)
	}

	if r.observer != nil {
		if err := r.observer.StaffUpdated(ctx, old, s); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the row and returns its last snapshot. Referencing
// schedule rows get staff_id nulled by the foreign key action; those
// rows are not audited.
func (r *repoPG) Delete(ctx context.Context, id string) (*Staff, error) {
	old, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM staff WHERE staff_id = $1`, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, fault.NotFound(tableName, id)
	}
	return old, nil
}
