package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritas-erp/veritas-erp/internal/shared"
)

// NewLedgerIntegrityHandler returns the handler for TaskLedgerIntegrity.
// It re-verifies the balance invariant over committed vouchers: for every
// voucher, the stored lines must sum to equal debit and credit. Violations
// indicate store-level corruption and are logged loudly; the job itself
// never mutates ledger state.
func NewLedgerIntegrityHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LedgerIntegrityPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		query := `SELECT v.id, v.voucher_number, SUM(l.debit_amount), SUM(l.credit_amount)
FROM vouchers v JOIN voucher_lines l ON l.voucher_id = v.id`
		var args []any
		if payload.Year != 0 {
			query += ` WHERE EXTRACT(YEAR FROM v.issue_date) = $1`
			args = append(args, payload.Year)
		}
		query += `
GROUP BY v.id, v.voucher_number
HAVING SUM(l.debit_amount) <> SUM(l.credit_amount)`

		rows, err := pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		violations := 0
		for rows.Next() {
			var id int64
			var number string
			var debit, credit int64
			if err := rows.Scan(&id, &number, &debit, &credit); err != nil {
				return err
			}
			violations++
			logger.Error("ledger integrity violation",
				slog.Int64("voucher_id", id),
				slog.String("voucher_number", number),
				slog.Int64("debit", debit),
				slog.Int64("credit", credit))
		}
		if err := rows.Err(); err != nil {
			return err
		}
		logger.Info("ledger integrity sweep finished",
			slog.Int("year", payload.Year),
			slog.Int("violations", violations))
		return nil
	}
}

// NewIdempotencyCleanupHandler returns the handler for TaskIdempotencyCleanup.
func NewIdempotencyCleanupHandler(store *shared.IdempotencyStore, retention time.Duration, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := store.Cleanup(ctx, retention)
		if err != nil {
			return err
		}
		logger.Info("idempotency cleanup finished", slog.Int64("removed", removed))
		return nil
	}
}
