package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardops/wardops/internal/platform/db"
	"github.com/wardops/wardops/internal/platform/fault"
	"github.com/wardops/wardops/pkg/date"
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

const patientCols = `patient_id, name, age, arrival_date, departure_date, service, satisfaction`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var arrival, departure *time.Time
	if err := row.Scan(&p.PatientID, &p.Name, &p.Age, &arrival, &departure, &p.Service, &p.Satisfaction); err != nil {
		return nil, err
	}
	p.ArrivalDate = dateFromTime(arrival)
	p.DepartureDate = dateFromTime(departure)
	return &p, nil
}

func dateFromTime(t *time.Time) *date.Date {
	if t == nil {
		return nil
	}
	d := date.FromTime(*t)
	return &d
}

// dateArg converts an optional date into a DATE bind value.
func dateArg(d *date.Date) interface{} {
	if d == nil {
		return nil
	}
	return d.Time()
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.PatientID == "" {
		p.PatientID = NewID()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (patient_id, name, age, arrival_date, departure_date, service, satisfaction)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.PatientID, p.Name, p.Age, dateArg(p.ArrivalDate), dateArg(p.DepartureDate), p.Service, p.Satisfaction)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fault.Validation(tableName, p.PatientID, fmt.Sprintf("duplicate patient_id=%s", p.PatientID))
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE patient_id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fault.NotFound(tableName, id)
		}
		return nil, err
	}
	return p, nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1
	if f.Service != "" {
		where = append(where, fmt.Sprintf("service = $%d", idx))
		args = append(args, f.Service)
		idx++
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients`+clause+
			fmt.Sprintf(` ORDER BY patient_id ASC LIMIT $%d OFFSET $%d`, idx, idx+1),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients
		SET name = $2, age = $3, arrival_date = $4, departure_date = $5, service = $6, satisfaction = $7
		WHERE patient_id = $1`,
		p.PatientID, p.Name, p.Age, dateArg(p.ArrivalDate), dateArg(p.DepartureDate), p.Service, p.Satisfaction)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound(tableName, p.PatientID)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id string) (*Patient, error) {
	old, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE patient_id = $1`, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, fault.NotFound(tableName, id)
	}
	return old, nil
}
