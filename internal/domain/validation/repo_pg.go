package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

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

const entryCols = `id, table_name, row_pk, error_message, payload, created_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var payloadRaw []byte
	err := row.Scan(&e.ID, &e.TableName, &e.RowPK, &e.ErrorMessage, &payloadRaw, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(payloadRaw) > 0 {
		if err := json.Unmarshal(payloadRaw, &e.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	return &e, nil
}

func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	var payload interface{}
	if e.Payload != nil {
		payload = e.Payload
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO validation_errors (table_name, row_pk, error_message, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.TableName, e.RowPK, e.ErrorMessage, payload).
		Scan(&e.ID, &e.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Entry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM validation_errors WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fault.NotFound("validation_errors", strconv.FormatInt(id, 10))
		}
		return nil, err
	}
	return e, nil
}

func (r *repoPG) List(ctx context.Context, table string, limit, offset int) ([]*Entry, int, error) {
	clause := ""
	args := []interface{}{}
	idx := 1
	if table != "" {
		clause = " WHERE table_name = $1"
		args = append(args, table)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM validation_errors`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM validation_errors`+clause+
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
