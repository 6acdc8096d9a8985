package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritas-erp/veritas-erp/internal/shared"
)

// Repository provides read access over the audit trail.
type Repository interface {
	Query(ctx context.Context, filters Filters, page shared.Page) ([]Entry, int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const entryColumns = `id, user_id, action, entity_type, entity_id, old_values, new_values, ip_address, user_agent, occurred_at`

func (r *repository) Query(ctx context.Context, filters Filters, page shared.Page) ([]Entry, int, error) {
	where, args := buildWhere(filters)

	var total int
	countSQL := `SELECT COUNT(*) FROM audit_log` + where
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit: count entries: %w", err)
	}

	listSQL := fmt.Sprintf(`SELECT %s FROM audit_log%s ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		entryColumns, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset)

	rows, err := r.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("audit: query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			userID    pgtype.Int8
			ip, agent pgtype.Text
		)
		if err := rows.Scan(&e.ID, &userID, &e.Action, &e.EntityType, &e.EntityID, &e.OldValues, &e.NewValues, &ip, &agent, &e.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("audit: scan entry: %w", err)
		}
		if userID.Valid {
			uid := userID.Int64
			e.UserID = &uid
		}
		e.IPAddress = ip.String
		e.UserAgent = agent.String
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func buildWhere(filters Filters) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filters.UserID != nil {
		add("user_id = $%d", *filters.UserID)
	}
	if filters.Action != "" {
		add("action = $%d", string(filters.Action))
	}
	if filters.EntityType != "" {
		add("entity_type = $%d", filters.EntityType)
	}
	if !filters.Start.IsZero() {
		add("occurred_at >= $%d", filters.Start)
	}
	if !filters.End.IsZero() {
		add("occurred_at <= $%d", filters.End)
	}
	if trimmed := strings.TrimSpace(filters.Search); trimmed != "" {
		args = append(args, "%"+trimmed+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(entity_type ILIKE $%d OR entity_id ILIKE $%d OR old_values::text ILIKE $%d OR new_values::text ILIKE $%d)", n, n, n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
