// Package staff implements CRUD for ward staff records. Staff is the
// referenced side of the schedule foreign key, and every update to a
// staff row is audited through a store-level observer so the entry is
// written exactly once no matter which call path performed the change.
package staff

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Staff maps to the staff table.
type Staff struct {
	StaffID   string  `db:"staff_id" json:"staff_id" bson:"_id"`
	StaffName string  `db:"staff_name" json:"staff_name" bson:"staff_name"`
	Role      *string `db:"role" json:"role" bson:"role"`
	Service   *string `db:"service" json:"service" bson:"service"`
}

// NewID returns a staff primary key: "STF-" plus 12 hex characters.
func NewID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return "STF-" + hex.EncodeToString(b)
}

// Validate returns every rule violation for the candidate, never just the
// first.
func (s *Staff) Validate() []string {
	var violations []string
	if s.StaffName == "" {
		violations = append(violations, "staff_name is required")
	} else if len(s.StaffName) > 255 {
		violations = append(violations, "staff_name exceeds 255 characters")
	}
	return violations
}

var mutableFields = map[string]bool{
	"staff_name": true,
	"role":       true,
	"service":    true,
}

// Merge returns a copy of s with the provided fields applied. Unknown
// keys are ignored; the primary key is never merged. The bool reports
// whether any known field was present.
func (s Staff) Merge(changes map[string]interface{}) (*Staff, bool, error) {
	raw, err := json.Marshal(s)
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
	merged := &Staff{}
	if err := json.Unmarshal(buf, merged); err != nil {
		return nil, false, fmt.Errorf("invalid field value: %w", err)
	}
	merged.StaffID = s.StaffID
	return merged, true, nil
}
