// Package writeflow drives every domain mutation through a single state
// machine so that validation, the store write, audit logging and rejection
// logging always happen in the same order with the same failure semantics,
// no matter which entity or backend is involved.
//
// The happy path walks validating -> committing -> logging_success -> done.
// Rejected candidates branch to logging_failure, which records a
// validation_errors entry best-effort before failing. Store and not-found
// faults fail immediately without recording anything.
package writeflow

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wardops/wardops/internal/platform/auth"
	"github.com/wardops/wardops/internal/platform/fault"
)

// State identifies a position in the write lifecycle. Transitions are
// logged at debug level for tracing individual writes.
type State string

const (
	StateValidating     State = "validating"
	StateCommitting     State = "committing"
	StateLoggingSuccess State = "logging_success"
	StateLoggingFailure State = "logging_failure"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// Operation names as stored in audit_log.operation.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Change describes a durable mutation for the audit log. Old is nil for
// inserts, New is nil for deletes, Actor is nil for anonymous requests.
type Change struct {
	Table string
	RowPK *string
	Op    string
	Old   interface{}
	New   interface{}
	Actor *string
}

// AuditRecorder appends audit entries. Implementations must report
// failures; the coordinator decides whether a failed append aborts the
// unit of work or surfaces as audit_write_failed.
type AuditRecorder interface {
	RecordChange(ctx context.Context, ch Change) error
}

// Rejection describes a candidate document that failed validation.
type Rejection struct {
	Table      string
	RowPK      *string
	Violations []string
	Payload    interface{}
}

// ErrorRecorder appends validation_errors entries. Recording is best
// effort: the coordinator logs a failed append and moves on.
type ErrorRecorder interface {
	RecordRejection(ctx context.Context, r Rejection) error
}

// Request is one mutation to drive through the machine. Validate returns
// the complete list of violations for the candidate (nil when the request
// needs no validation, e.g. deletes). Mutate performs the store write and
// reports what changed.
type Request struct {
	Table   string
	RowPK   *string
	Op      string
	Payload interface{}

	Validate func(ctx context.Context) []string
	Mutate   func(ctx context.Context) (*Result, error)
}

// Result reports a completed mutation. Audited is set when the store
// already wrote the audit entry itself (update observers); the coordinator
// then skips its own append so one logical update produces exactly one
// entry.
type Result struct {
	RowPK   string
	Old     interface{}
	New     interface{}
	Audited bool
}

// Config wires a Coordinator. InTx, when set, runs the mutation and its
// audit append in one transaction; leave it nil for backends without
// multi-write transactions, in which case the append happens after the
// mutation is durable.
type Config struct {
	Audits AuditRecorder
	Errors ErrorRecorder
	InTx   func(ctx context.Context, fn func(ctx context.Context) error) error
	Logger zerolog.Logger
}

type Coordinator struct {
	audits AuditRecorder
	errors ErrorRecorder
	inTx   func(ctx context.Context, fn func(ctx context.Context) error) error
	logger zerolog.Logger
}

func New(cfg Config) *Coordinator {
	return &Coordinator{
		audits: cfg.Audits,
		errors: cfg.Errors,
		inTx:   cfg.InTx,
		logger: cfg.Logger,
	}
}

// Execute walks req through the state machine and returns nil on Done or
// the classifying fault on Failed.
//
// Invariants: no store mutation happens while violations exist; an audit
// entry always describes a mutation that actually happened; not-found and
// store faults record nothing.
func (c *Coordinator) Execute(ctx context.Context, req Request) error {
	if req.Mutate == nil {
		return fmt.Errorf("writeflow: %s %s request has no mutation", req.Op, req.Table)
	}

	var (
		state      = StateValidating
		violations []string
		res        *Result
		final      error
	)

	for {
		c.trace(req, state)

		switch state {
		case StateValidating:
			if req.Validate != nil {
				violations = req.Validate(ctx)
			}
			if len(violations) > 0 {
				final = fault.Validation(req.Table, pkString(req.RowPK), violations...)
				state = StateLoggingFailure
				continue
			}
			state = StateCommitting

		case StateCommitting:
			var err error
			res, err = c.commit(ctx, req)
			if err != nil {
				switch {
				case fault.IsNotFound(err):
					final = err
					state = StateFailed
				case fault.IsValidation(err):
					// Uniqueness or referential conflict surfaced by the
					// store at commit time. Deterministic, so recorded and
					// never retried.
					if f, ok := fault.As(err); ok {
						violations = f.Violations
					}
					final = err
					state = StateLoggingFailure
				default:
					final = fault.Store(req.Table, err)
					state = StateFailed
				}
				continue
			}
			state = StateLoggingSuccess

		case StateLoggingSuccess:
			if err := c.recordChange(ctx, req, res); err != nil {
				// The mutation is durable; the caller must learn the audit
				// entry is missing.
				final = fault.AuditWrite(req.Table, res.RowPK, err)
				state = StateFailed
				continue
			}
			state = StateDone

		case StateLoggingFailure:
			c.recordRejection(ctx, req, violations)
			state = StateFailed

		case StateDone:
			return nil

		case StateFailed:
			return final
		}
	}
}

// commit applies the mutation. With a transaction runner the mutation and
// its audit append commit atomically: a failed append rolls the mutation
// back and the error classifies as store_unavailable. Without one the
// mutation stands alone and auditing happens in logging_success.
func (c *Coordinator) commit(ctx context.Context, req Request) (*Result, error) {
	if c.inTx == nil {
		return req.Mutate(ctx)
	}

	var res *Result
	err := c.inTx(ctx, func(txCtx context.Context) error {
		var err error
		res, err = req.Mutate(txCtx)
		if err != nil {
			return err
		}
		if res.Audited || c.audits == nil {
			return nil
		}
		if err := c.audits.RecordChange(txCtx, c.change(txCtx, req, res)); err != nil {
			return fmt.Errorf("audit append: %w", err)
		}
		res.Audited = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Coordinator) recordChange(ctx context.Context, req Request, res *Result) error {
	if res.Audited || c.audits == nil {
		return nil
	}
	return c.audits.RecordChange(ctx, c.change(ctx, req, res))
}

func (c *Coordinator) recordRejection(ctx context.Context, req Request, violations []string) {
	if c.errors == nil {
		return
	}
	rej := Rejection{
		Table:      req.Table,
		RowPK:      req.RowPK,
		Violations: violations,
		Payload:    req.Payload,
	}
	if err := c.errors.RecordRejection(ctx, rej); err != nil {
		c.logger.Error().Err(err).
			Str("table", req.Table).
			Str("pk", pkString(req.RowPK)).
			Msg("failed to record rejection")
	}
}

func (c *Coordinator) change(ctx context.Context, req Request, res *Result) Change {
	pk := res.RowPK
	return Change{
		Table: req.Table,
		RowPK: &pk,
		Op:    req.Op,
		Old:   res.Old,
		New:   res.New,
		Actor: auth.ActorFromContext(ctx),
	}
}

func (c *Coordinator) trace(req Request, s State) {
	c.logger.Debug().
		Str("table", req.Table).
		Str("op", req.Op).
		Str("pk", pkString(req.RowPK)).
		Str("state", string(s)).
		Msg("write transition")
}

func pkString(pk *string) string {
	if pk == nil {
		return ""
	}
	return *pk
}
