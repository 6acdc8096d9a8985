package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritas-erp/veritas-erp/internal/platform/db"
)

// ErrAuditPersistence indicates the audit entry could not be committed
// atomically with its business mutation. The whole mutation must fail:
// audit completeness is a correctness property, not best-effort.
var ErrAuditPersistence = errors.New("audit: entry could not be persisted")

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Recorder persists audit entries.
type Recorder struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRecorder constructs a Recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (r *Recorder) WithNow(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// RecordTx writes the entry inside the caller's transaction so that the
// business mutation and its trail commit or roll back together.
func (r *Recorder) RecordTx(ctx context.Context, tx pgx.Tx, entry Entry) error {
	return r.insert(ctx, tx, entry)
}

// Record writes a standalone entry outside any business transaction. Used for
// events with no accompanying mutation, such as login/logout and read access.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("%w: recorder not initialised", ErrAuditPersistence)
	}
	return r.insert(ctx, r.pool, entry)
}

// Apply runs a mutation and records its audit entry in one transaction.
// Mutating modules integrate through this boundary, so an unaudited mutation
// is structurally impossible rather than a per-call discipline.
func (r *Recorder) Apply(ctx context.Context, fn func(pgx.Tx) (Entry, error)) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("%w: recorder not initialised", ErrAuditPersistence)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		entry, err := fn(tx)
		if err != nil {
			return err
		}
		return r.RecordTx(ctx, tx, entry)
	})
}

func (r *Recorder) insert(ctx context.Context, db execer, entry Entry) error {
	if !entry.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrAuditPersistence, entry.Action)
	}
	if entry.EntityType == "" || entry.EntityID == "" {
		return fmt.Errorf("%w: entity type and id required", ErrAuditPersistence)
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}
	_, err := db.Exec(ctx, `INSERT INTO audit_log (user_id, action, entity_type, entity_id, old_values, new_values, ip_address, user_agent, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.UserID, string(entry.Action), entry.EntityType, entry.EntityID,
		rawOrNil(entry.OldValues), rawOrNil(entry.NewValues),
		nullString(entry.IPAddress), nullString(entry.UserAgent), ts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuditPersistence, err)
	}
	return nil
}

func rawOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
