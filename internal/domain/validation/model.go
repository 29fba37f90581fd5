// Package validation records rejected write candidates in the append-only
// validation_errors table and serves the read API over them. The service
// is the error recorder used by the write coordinator; recording is best
// effort and never changes the outcome of the rejected operation.
package validation

import (
	"time"
)

// Entry maps to the validation_errors table. ErrorMessage joins every
// violation with ";" so one entry describes the whole rejection.
type Entry struct {
	ID           int64                  `db:"id" json:"id" bson:"_id"`
	TableName    string                 `db:"table_name" json:"table_name" bson:"table_name"`
	RowPK        *string                `db:"row_pk" json:"row_pk" bson:"row_pk"`
	ErrorMessage string                 `db:"error_message" json:"error_message" bson:"error_message"`
	Payload      map[string]interface{} `db:"payload" json:"payload,omitempty" bson:"payload,omitempty"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at" bson:"created_at"`
}
