package weekly

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

const reportCols = `id, week, month, service, available_beds, patients_request, patients_admitted, patients_refused, patient_satisfaction, staff_morale, event`

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.Week, &rep.Month, &rep.Service,
		&rep.AvailableBeds, &rep.PatientsRequest, &rep.PatientsAdmitted, &rep.PatientsRefused,
		&rep.PatientSatisfaction, &rep.StaffMorale, &rep.Event)
	return &rep, err
}

func duplicateTuple(rep *Report) string {
	return fmt.Sprintf("duplicate (week,month,service)=%s", tupleKey(rep.Week, rep.Month, rep.Service))
}

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO services_weekly
			(week, month, service, available_beds, patients_request, patients_admitted, patients_refused, patient_satisfaction, staff_morale, event)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		rep.Week, rep.Month, rep.Service,
		rep.AvailableBeds, rep.PatientsRequest, rep.PatientsAdmitted, rep.PatientsRefused,
		rep.PatientSatisfaction, rep.StaffMorale, rep.Event).Scan(&rep.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fault.Validation(tableName, "", duplicateTuple(rep))
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Report, error) {
	rep, err := scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM services_weekly WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fault.NotFound(tableName, strconv.FormatInt(id, 10))
		}
		return nil, err
	}
	return rep, nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Report, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1
	if f.Service != "" {
		where = append(where, fmt.Sprintf("service = $%d", idx))
		args = append(args, f.Service)
		idx++
	}
	if f.Week != nil {
		where = append(where, fmt.Sprintf("week = $%d", idx))
		args = append(args, *f.Week)
		idx++
	}
	if f.Month != nil {
		where = append(where, fmt.Sprintf("month = $%d", idx))
		args = append(args, *f.Month)
		idx++
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM services_weekly`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reportCols+` FROM services_weekly`+clause+
			fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, idx, idx+1),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rep)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, rep *Report) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE services_weekly
		SET week = $2, month = $3, service = $4, available_beds = $5, patients_request = $6,
			patients_admitted = $7, patients_refused = $8, patient_satisfaction = $9,
			staff_morale = $10, event = $11
		WHERE id = $1`,
		rep.ID, rep.Week, rep.Month, rep.Service,
		rep.AvailableBeds, rep.PatientsRequest, rep.PatientsAdmitted, rep.PatientsRefused,
		rep.PatientSatisfaction, rep.StaffMorale, rep.Event)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fault.Validation(tableName, strconv.FormatInt(rep.ID, 10), duplicateTuple(rep))
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound(tableName, strconv.FormatInt(rep.ID, 10))
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int64) (*Report, error) {
	old, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM services_weekly WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, fault.NotFound(tableName, strconv.FormatInt(id, 10))
	}
	return old, nil
}

func (r *repoPG) TupleExists(ctx context.Context, week, month int, service string, excludeID int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM services_weekly
			WHERE week = $1 AND month = $2 AND service = $3 AND id <> $4
		)`,
		week, month, service, excludeID).Scan(&exists)
	return exists, err
}

func (r *repoPG) Lookup(ctx context.Context, service string, week, month int) (*Report, error) {
	rep, err := scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM services_weekly WHERE service = $1 AND week = $2 AND month = $3 LIMIT 1`,
		service, week, month))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fault.NotFound(tableName, tupleKey(week, month, service))
		}
		return nil, err
	}
	return rep, nil
}
