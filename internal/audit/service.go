package audit

import (
	"context"
	"fmt"

	"github.com/veritas-erp/veritas-erp/internal/shared"
)

// Result bundles one page of entries with the filtered total.
type Result struct {
	Entries    []Entry
	TotalCount int
}

// Service answers filtered, paginated queries over the trail.
type Service struct {
	repo Repository
}

// NewService constructs the query service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Query returns entries matching filters, newest first, ties broken by id
// descending, plus the total match count for pagination.
func (s *Service) Query(ctx context.Context, filters Filters, page shared.Page) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	if filters.Action != "" && !filters.Action.Valid() {
		return Result{}, fmt.Errorf("audit: unknown action filter %q", filters.Action)
	}
	if !filters.Start.IsZero() && !filters.End.IsZero() && filters.End.Before(filters.Start) {
		return Result{}, fmt.Errorf("audit: end date before start date")
	}
	entries, total, err := s.repo.Query(ctx, filters, page.Normalize())
	if err != nil {
		return Result{}, err
	}
	return Result{Entries: entries, TotalCount: total}, nil
}
