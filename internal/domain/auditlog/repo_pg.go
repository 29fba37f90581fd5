package auditlog

import (
	"context"
	"encoding/json"
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

type repoPG struct{ pool *pgxpool.Pool }

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

const entryCols = `id, table_name, row_pk, operation, old_values, new_values, changed_at, changed_by`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var oldRaw, newRaw []byte
	err := row.Scan(&e.ID, &e.TableName, &e.RowPK, &e.Operation, &oldRaw, &newRaw, &e.ChangedAt, &e.ChangedBy)
	if err != nil {
		return nil, err
	}
	if len(oldRaw) > 0 {
		if err := json.Unmarshal(oldRaw, &e.OldValues); err != nil {
			return nil, fmt.Errorf("decode old_values: %w", err)
		}
	}
	if len(newRaw) > 0 {
		if err := json.Unmarshal(newRaw, &e.NewValues); err != nil {
			return nil, fmt.Errorf("decode new_values: %w", err)
		}
	}
	return &e, nil
}

func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	var oldV, newV interface{}
	if e.OldValues != nil {
		oldV = e.OldValues
	}
	if e.NewValues != nil {
		newV = e.NewValues
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO audit_log (table_name, row_pk, operation, old_values, new_values, changed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, changed_at`,
		e.TableName, e.RowPK, e.Operation, oldV, newV, e.ChangedBy).
		Scan(&e.ID, &e.ChangedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Entry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM audit_log WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fault.NotFound("audit_log", strconv.FormatInt(id, 10))
		}
		return nil, err
	}
	return e, nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1
	if f.Table != "" {
		where = append(where, fmt.Sprintf("table_name = $%d", idx))
		args = append(args, f.Table)
		idx++
	}
	if f.RowPK != "" {
		where = append(where, fmt.Sprintf("row_pk = $%d", idx))
		args = append(args, f.RowPK)
		idx++
	}
	if f.Operation != "" {
		where = append(where, fmt.Sprintf("operation = $%d", idx))
		args = append(args, f.Operation)
		idx++
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM audit_log`+clause+
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
