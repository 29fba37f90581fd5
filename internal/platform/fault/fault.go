// Package fault defines the error taxonomy shared by both storage backends
// and the write path. Every failure a caller can observe is classified by
// one of the codes below so that handlers, retry logic and tests never need
// to inspect driver-specific errors.
package fault

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	// CodeValidation marks a candidate rejected by validation rules. The
	// fault carries the complete list of violations, not just the first.
	CodeValidation = "validation_failed"

	// CodeReferential marks a write referencing a row that does not exist.
	// It is a subtype of validation failure: IsValidation returns true.
	CodeReferential = "referential_violation"

	// CodeNotFound marks a read or mutation addressing a missing row.
	CodeNotFound = "not_found"

	// CodeAuditWrite marks a mutation that was durably applied but whose
	// audit log append failed. The record IS saved; the caller must not
	// treat the operation as a clean success.
	CodeAuditWrite = "audit_write_failed"

	// CodeStore marks an infrastructure failure (connectivity, timeout).
	// Nothing is known to have been written; the operation may be retried.
	CodeStore = "store_unavailable"
)

// Fault is the concrete error type surfaced by repositories, the write
// coordinator and services.
type Fault struct {
	Code       string
	Table      string
	RowPK      string
	Message    string
	Violations []string
	Err        error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// Validation builds a validation fault carrying every violation found.
// The message joins the violations with ";" to match the stored
// error_message format.
func Validation(table, rowPK string, violations ...string) *Fault {
	return &Fault{
		Code:       CodeValidation,
		Table:      table,
		RowPK:      rowPK,
		Message:    strings.Join(violations, ";"),
		Violations: violations,
	}
}

// Referential builds a referential violation fault.
func Referential(table, rowPK, violation string) *Fault {
	return &Fault{
		Code:       CodeReferential,
		Table:      table,
		RowPK:      rowPK,
		Message:    violation,
		Violations: []string{violation},
	}
}

// NotFound builds a not-found fault for the given table and primary key.
func NotFound(table, rowPK string) *Fault {
	return &Fault{Code: CodeNotFound, Table: table, RowPK: rowPK, Message: "record not found"}
}

// AuditWrite builds a fault for a durable mutation whose audit append
// failed.
func AuditWrite(table, rowPK string, err error) *Fault {
	return &Fault{
		Code:    CodeAuditWrite,
		Table:   table,
		RowPK:   rowPK,
		Message: "record saved but audit log write failed",
		Err:     err,
	}
}

// Store wraps an infrastructure error. If err is already a Fault it is
// returned unchanged so classification survives layer boundaries.
func Store(table string, err error) *Fault {
	if f, ok := As(err); ok {
		return f
	}
	return &Fault{Code: CodeStore, Table: table, Message: "storage unavailable", Err: err}
}

// As unwraps err to a *Fault when one is present in its chain.
func As(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Code returns the fault code of err, or "" for non-fault errors.
func Code(err error) string {
	if f, ok := As(err); ok {
		return f.Code
	}
	return ""
}

// IsValidation reports whether err is a validation failure, including the
// referential subtype.
func IsValidation(err error) bool {
	c := Code(err)
	return c == CodeValidation || c == CodeReferential
}

func IsNotFound(err error) bool { return Code(err) == CodeNotFound }

func IsAuditWrite(err error) bool { return Code(err) == CodeAuditWrite }

func IsStore(err error) bool { return Code(err) == CodeStore }

// Retryable reports whether the caller may safely retry the operation.
// Only infrastructure faults qualify; validation and uniqueness conflicts
// are deterministic and retrying them is pointless.
func Retryable(err error) bool { return IsStore(err) }

// HTTP maps err onto the transport layer. Validation faults carry their
// violations in the body so clients see every problem at once.
func HTTP(err error) *echo.HTTPError {
	f, ok := As(err)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	body := echo.Map{"code": f.Code, "message": f.Message}
	if len(f.Violations) > 0 {
		body["violations"] = f.Violations
	}

	switch f.Code {
	case CodeValidation, CodeReferential:
		return echo.NewHTTPError(http.StatusBadRequest, body)
	case CodeNotFound:
		return echo.NewHTTPError(http.StatusNotFound, body)
	case CodeStore:
		return echo.NewHTTPError(http.StatusServiceUnavailable, body)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, body)
	}
}
