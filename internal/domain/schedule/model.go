// Package schedule implements CRUD for the shift roster plus the
// on-shift availability query. Entries may reference a staff row;
// the reference is pre-checked against the staff directory and, on the
// relational backend, backed by a foreign key.
package schedule

import (
	"encoding/json"
	"fmt"
)

// Entry maps to the staff_schedule table. staff_name and role are
// caller-supplied snapshots and are not kept in sync with the staff
// table.
type Entry struct {
	ID         int64   `db:"id" json:"id" bson:"_id"`
	DayOrShift string  `db:"day_or_shift" json:"day_or_shift" bson:"day_or_shift"`
	StaffID    *string `db:"staff_id" json:"staff_id" bson:"staff_id"`
	StaffName  *string `db:"staff_name" json:"staff_name" bson:"staff_name"`
	Role       *string `db:"role" json:"role" bson:"role"`
	Service    *string `db:"service" json:"service" bson:"service"`
	OnShift    bool    `db:"on_shift" json:"on_shift" bson:"on_shift"`
}

// Validate returns every rule violation for the candidate. The staff
// reference is checked separately because it needs store state.
func (e *Entry) Validate() []string {
	var violations []string
	if e.DayOrShift == "" {
		violations = append(violations, "day_or_shift is required")
	}
	return violations
}

var mutableFields = map[string]bool{
	"day_or_shift": true,
	"staff_id":     true,
	"staff_name":   true,
	"role":         true,
	"service":      true,
	"on_shift":     true,
}

// Merge returns a copy of e with the provided fields applied. Unknown
// keys are ignored; the primary key is never merged. The bool reports
// whether any known field was present.
func (e Entry) Merge(changes map[string]interface{}) (*Entry, bool, error) {
	raw, err := json.Marshal(e)
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
	merged := &Entry{}
	if err := json.Unmarshal(buf, merged); err != nil {
		return nil, false, fmt.Errorf("invalid field value: %w", err)
	}
	merged.ID = e.ID
	return merged, true, nil
}
