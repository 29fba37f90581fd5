// Package weekly implements CRUD for per-service weekly reports plus the
// metrics lookup by (service, week, month). The tuple is unique: a
// pre-check collects the violation with the rest, and the unique index
// remains the backstop for concurrent writers.
package weekly

import (
	"encoding/json"
	"fmt"
)

// Report maps to the services_weekly table.
type Report struct {
	ID                  int64   `db:"id" json:"id" bson:"_id"`
	Week                int     `db:"week" json:"week" bson:"week"`
	Month               int     `db:"month" json:"month" bson:"month"`
	Service             string  `db:"service" json:"service" bson:"service"`
	AvailableBeds       *int    `db:"available_beds" json:"available_beds" bson:"available_beds"`
	PatientsRequest     *int    `db:"patients_request" json:"patients_request" bson:"patients_request"`
	PatientsAdmitted    *int    `db:"patients_admitted" json:"patients_admitted" bson:"patients_admitted"`
	PatientsRefused     *int    `db:"patients_refused" json:"patients_refused" bson:"patients_refused"`
	PatientSatisfaction *int    `db:"patient_satisfaction" json:"patient_satisfaction" bson:"patient_satisfaction"`
	StaffMorale         *int    `db:"staff_morale" json:"staff_morale" bson:"staff_morale"`
	Event               *string `db:"event" json:"event" bson:"event"`
}

// tupleKey formats the unique tuple the way it appears in violation
// messages and lookup faults: (week,month,service).
func tupleKey(week, month int, service string) string {
	return fmt.Sprintf("(%d,%d,%s)", week, month, service)
}

// Validate returns every rule violation for the candidate, never just
// the first. Range violations use the terse field=value form. The tuple
// uniqueness check lives in the service because it needs store state.
func (r *Report) Validate() []string {
	var violations []string

	if r.Week < 1 || r.Week > 53 {
		violations = append(violations, fmt.Sprintf("week=%d", r.Week))
	}
	if r.Month < 1 || r.Month > 12 {
		violations = append(violations, fmt.Sprintf("month=%d", r.Month))
	}
	if r.Service == "" {
		violations = append(violations, "service is required")
	} else if len(r.Service) > 64 {
		violations = append(violations, "service exceeds 64 characters")
	}

	count := func(name string, v *int) {
		if v != nil && *v < 0 {
			violations = append(violations, fmt.Sprintf("%s=%d", name, *v))
		}
	}
	count("available_beds", r.AvailableBeds)
	count("patients_request", r.PatientsRequest)
	count("patients_admitted", r.PatientsAdmitted)
	count("patients_refused", r.PatientsRefused)

	percent := func(name string, v *int) {
		if v != nil && (*v < 0 || *v > 100) {
			violations = append(violations, fmt.Sprintf("%s=%d", name, *v))
		}
	}
	percent("patient_satisfaction", r.PatientSatisfaction)
	percent("staff_morale", r.StaffMorale)

	if r.Event != nil && len(*r.Event) > 255 {
		violations = append(violations, "event exceeds 255 characters")
	}
	return violations
}

var mutableFields = map[string]bool{
	"week":                 true,
	"month":                true,
	"service":              true,
	"available_beds":       true,
	"patients_request":     true,
	"patients_admitted":    true,
	"patients_refused":     true,
	"patient_satisfaction": true,
	"staff_morale":         true,
	"event":                true,
}

// Merge returns a copy of r with the provided fields applied. Unknown
// keys are ignored; the primary key is never merged. The bool reports
// whether any known field was present.
func (r Report) Merge(changes map[string]interface{}) (*Report, bool, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, false, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, err
	}

	touched := false
	for k, v := range changes {
		if !mutableFields[k] {
			continue
		}
		doc[k] = v
		touched = true
	}
	if !touched {
		return nil, false, nil
	}

	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, false, err
	}
	merged := &Report{}
	if err := json.Unmarshal(buf, merged); err != nil {
		return nil, false, fmt.Errorf("invalid field value: %w", err)
	}
	merged.ID = r.ID
	return merged, true, nil
}
