// Package patient implements CRUD for ward patient records.
package patient

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/wardops/wardops/pkg/date"
)

// Patient maps to the patients table.
type Patient struct {
	PatientID     string     `db:"patient_id" json:"patient_id" bson:"_id"`
	Name          string     `db:"name" json:"name" bson:"name"`
	Age           *int       `db:"age" json:"age" bson:"age"`
	ArrivalDate   *date.Date `db:"arrival_date" json:"arrival_date" bson:"arrival_date"`
	DepartureDate *date.Date `db:"departure_date" json:"departure_date" bson:"departure_date"`
	Service       *string    `db:"service" json:"service" bson:"service"`
	Satisfaction  *int       `db:"satisfaction" json:"satisfaction" bson:"satisfaction"`
}

// NewID returns a patient primary key: "PAT-" plus 16 hex characters.
func NewID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return "PAT-" + hex.EncodeToString(b)
}

// Validate returns every rule violation for the candidate, never just the
// first. Range violations use the terse field=value form.
func (p *Patient) Validate() []string {
	var violations []string
	if p.Name == "" {
		violations = append(violations, "name is required")
	} else if len(p.Name) > 255 {
		violations = append(violations, "name exceeds 255 characters")
	}
	if p.Satisfaction != nil && (*p.Satisfaction < 0 || *p.Satisfaction > 100) {
		violations = append(violations, fmt.Sprintf("satisfaction=%d", *p.Satisfaction))
	}
	if p.Age != nil && *p.Age < 0 {
		violations = append(violations, fmt.Sprintf("age=%d", *p.Age))
	}
	if p.ArrivalDate != nil && p.DepartureDate != nil && p.DepartureDate.Before(*p.ArrivalDate) {
		violations = append(violations, fmt.Sprintf(
			"departure_date=%s precedes arrival_date=%s", p.DepartureDate, p.ArrivalDate))
	}
	if p.Service != nil && len(*p.Service) > 64 {
		violations = append(violations, "service exceeds 64 characters")
	}
	return violations
}

var mutableFields = map[string]bool{
	"name":           true,
	"age":            true,
	"arrival_date":   true,
	"departure_date": true,
	"service":        true,
	"satisfaction":   true,
}

// Merge returns a copy of p with the provided fields applied. Unknown
// keys are ignored; the primary key is never merged. The bool reports
// whether any known field was present.
func (p Patient) Merge(changes map[string]interface{}) (*Patient, bool, error) {
	raw, err := json.Marshal(p)
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
	merged := &Patient{}
	if err := json.Unmarshal(buf, merged); err != nil {
		return nil, false, fmt.Errorf("invalid field value: %w", err)
	}
	merged.PatientID = p.PatientID
	return merged, true, nil
}
