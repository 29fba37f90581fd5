// Package auditlog records every durable mutation as an append-only
// audit_log entry and serves the read API over them. The service is the
// audit recorder used by the write coordinator and the staff update
// observer.
package auditlog

import (
	"time"
)

// Entry maps to the audit_log table. Snapshots are full column maps of
// the row; OldValues is absent for inserts, NewValues for deletes.
type Entry struct {
	ID        int64                  `db:"id" json:"id" bson:"_id"`
	TableName string                 `db:"table_name" json:"table_name" bson:"table_name"`
	RowPK     *string                `db:"row_pk" json:"row_pk" bson:"row_pk"`
	Operation string                 `db:"operation" json:"operation" bson:"operation"`
	OldValues map[string]interface{} `db:"old_values" json:"old_values,omitempty" bson:"old_values,omitempty"`
	NewValues map[string]interface{} `db:"new_values" json:"new_values,omitempty" bson:"new_values,omitempty"`
	ChangedAt time.Time              `db:"changed_at" json:"changed_at" bson:"changed_at"`
	ChangedBy *string                `db:"changed_by" json:"changed_by" bson:"changed_by"`
}

// Filter narrows List reads. Zero fields match everything.
type Filter struct {
	Table     string
	RowPK     string
	Operation string
}
