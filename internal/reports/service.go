package reports

import (
	"context"
	"fmt"
)

// Service composes ledger reads behind the cache.
type Service struct {
	repo  Repository
	cache *Cache
}

// NewService constructs the gateway service.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// LedgerSummary returns the per-account aggregate, served from cache when a
// fresh copy exists. Slightly stale reads are acceptable on this path.
func (s *Service) LedgerSummary(ctx context.Context, year int) (LedgerSummary, error) {
	if s.repo == nil {
		return LedgerSummary{}, fmt.Errorf("reports: repository not configured")
	}
	key := fmt.Sprintf("reports:ledger-summary:%d", year)
	var summary LedgerSummary
	err := s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		rows, err := s.repo.LedgerSummary(ctx, year)
		if err != nil {
			return nil, err
		}
		return LedgerSummary{Year: year, Rows: rows}, nil
	})
	if err != nil {
		return LedgerSummary{}, err
	}
	return summary, nil
}

// VoucherBook returns the year's vouchers with lines, cached like the summary.
func (s *Service) VoucherBook(ctx context.Context, year int) (VoucherBook, error) {
	if s.repo == nil {
		return VoucherBook{}, fmt.Errorf("reports: repository not configured")
	}
	key := fmt.Sprintf("reports:voucher-book:%d", year)
	var book VoucherBook
	err := s.cache.FetchJSON(ctx, key, &book, func(ctx context.Context) (any, error) {
		entries, err := s.repo.VoucherBook(ctx, year)
		if err != nil {
			return nil, err
		}
		return VoucherBook{Year: year, Entries: entries}, nil
	})
	if err != nil {
		return VoucherBook{}, err
	}
	return book, nil
}
