// Package audithttp exposes the audit trail query API.
package audithttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/veritas-erp/veritas-erp/internal/audit"
	"github.com/veritas-erp/veritas-erp/internal/platform/httpx"
	"github.com/veritas-erp/veritas-erp/internal/shared"
)

// QueryService defines the business contract for audit queries.
type QueryService interface {
	Query(ctx context.Context, filters audit.Filters, page shared.Page) (audit.Result, error)
}

// Handler serves audit review requests.
type Handler struct {
	logger  *slog.Logger
	service QueryService
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service QueryService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

type entryDTO struct {
	ID         int64           `json:"id"`
	UserID     *int64          `json:"userId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	OldValues  json.RawMessage `json:"oldValues"`
	NewValues  json.RawMessage `json:"newValues"`
	IPAddress  string          `json:"ipAddress,omitempty"`
	UserAgent  string          `json:"userAgent,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

type queryResponse struct {
	Entries    []entryDTO `json:"entries"`
	TotalCount int        `json:"totalCount"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	filters, page, err := parseQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	result, err := h.service.Query(r.Context(), filters, page)
	if err != nil {
		h.logger.Error("audit query", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	entries := make([]entryDTO, 0, len(result.Entries))
	for _, e := range result.Entries {
		entries = append(entries, entryDTO{
			ID:         e.ID,
			UserID:     e.UserID,
			Action:     string(e.Action),
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			OldValues:  e.OldValues,
			NewValues:  e.NewValues,
			IPAddress:  e.IPAddress,
			UserAgent:  e.UserAgent,
			Timestamp:  e.Timestamp,
		})
	}
	httpx.JSON(w, http.StatusOK, queryResponse{Entries: entries, TotalCount: result.TotalCount})
}

func parseQuery(r *http.Request) (audit.Filters, shared.Page, error) {
	q := r.URL.Query()
	var filters audit.Filters
	var page shared.Page

	if raw := strings.TrimSpace(q.Get("user_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filters, page, errParam("user_id", raw)
		}
		filters.UserID = &id
	}
	filters.Action = audit.Action(strings.TrimSpace(q.Get("action")))
	filters.EntityType = strings.TrimSpace(q.Get("entity_type"))
	filters.Search = q.Get("search")

	var err error
	if filters.Start, err = parseDate(q.Get("start_date"), false); err != nil {
		return filters, page, err
	}
	if filters.End, err = parseDate(q.Get("end_date"), true); err != nil {
		return filters, page, err
	}

	if raw := q.Get("limit"); raw != "" {
		if page.Limit, err = strconv.Atoi(raw); err != nil {
			return filters, page, errParam("limit", raw)
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if page.Offset, err = strconv.Atoi(raw); err != nil {
			return filters, page, errParam("offset", raw)
		}
	}
	return filters, page, nil
}

// parseDate accepts RFC3339 timestamps or bare dates. A bare end date is
// pushed to the final instant of that day so the range stays inclusive.
func parseDate(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errParam("date", raw)
	}
	if endOfDay {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}

type paramError struct {
	name, value string
}

func (e paramError) Error() string {
	return "invalid " + e.name + ": " + e.value
}

func errParam(name, value string) error {
	return paramError{name: name, value: value}
}
