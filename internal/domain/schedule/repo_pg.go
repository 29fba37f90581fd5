package schedule

import (
	"context"
	"fmt"
	"strconv"
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
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repo {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const entryCols = `id, day_or_shift, staff_id, staff_name, role, service, on_shift`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.DayOrShift, &e.StaffID, &e.StaffName, &e.Role, &e.Service, &e.OnShift)
	return &e, err
}

func fkViolation(e *Entry) string {
	id := ""
	if e.StaffID != nil {
		id = *e.StaffID
	}
	return fmt.Sprintf("staff_id=%s does not exist", id)
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO staff_schedule (day_or_shift, staff_id, staff_name, role, service, on_shift)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		e.DayOrShift, e.StaffID, e.StaffName, e.Role, e.Service, e.OnShift).Scan(&e.ID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fault.Referential(tableName, "", fkViolation(e))
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Entry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM staff_schedule WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fault.NotFound(tableName, strconv.FormatInt(id, 10))
		}
		return nil, err
	}
	return e, nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1
	if f.Service != "" {
		where = append(where, fmt.Sprintf("service = $%d", idx))
		args = append(args, f.Service)
		idx++
	}
	if f.DayOrShift != "" {
		where = append(where, fmt.Sprintf("day_or_shift = $%d", idx))
		args = append(args, f.DayOrShift)
		idx++
	}
	if f.StaffID != "" {
		where = append(where, fmt.Sprintf("staff_id = $%d", idx))
		args = append(args, f.StaffID)
		idx++
	}
	if f.OnShift != nil {
		where = append(where, fmt.Sprintf("on_shift = $%d", idx))
		args = append(args, *f.OnShift)
		idx++
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM staff_schedule`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM staff_schedule`+clause+
			fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, idx, idx+1),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, e *Entry) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE staff_schedule
		SET day_or_shift = $2, staff_id = $3, staff_name = $4, role = $5, service = $6, on_shift = $7
		WHERE id = $1`,
		e.ID, e.DayOrShift, e.StaffID, e.StaffName, e.Role, e.Service, e.OnShift)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fault.Referential(tableName, strconv.FormatInt(e.ID, 10), fkViolation(e))
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound(tableName, strconv.FormatInt(e.ID, 10))
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int64) (*Entry, error) {
	old, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM staff_schedule WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, fault.NotFound(tableName, strconv.FormatInt(id, 10))
	}
	return old, nil
}

func (r *repoPG) CountOnShift(ctx context.Context, service, dayOrShift string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM staff_schedule
		WHERE service = $1 AND day_or_shift = $2 AND on_shift = TRUE`,
		service, dayOrShift).Scan(&n)
	return n, err
}
