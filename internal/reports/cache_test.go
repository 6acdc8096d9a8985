package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheFetchJSON(t *testing.T) {
	t.Run("second fetch skips the loader", func(t *testing.T) {
		cache, _ := testCache(t)

		calls := 0
		loader := func(ctx context.Context) (any, error) {
			calls++
			return LedgerSummary{Year: 2026, Rows: []SummaryRow{{AccountCode: "1.1", Debit: 500}}}, nil
		}

		var first, second LedgerSummary
		require.NoError(t, cache.FetchJSON(context.Background(), "k", &first, loader))
		require.NoError(t, cache.FetchJSON(context.Background(), "k", &second, loader))
		require.Equal(t, 1, calls)
		require.Equal(t, first, second)
		require.Equal(t, int64(500), second.Rows[0].Debit)
	})

	t.Run("expiry reloads", func(t *testing.T) {
		cache, mr := testCache(t)

		calls := 0
		loader := func(ctx context.Context) (any, error) {
			calls++
			return LedgerSummary{Year: 2026}, nil
		}

		var out LedgerSummary
		require.NoError(t, cache.FetchJSON(context.Background(), "k", &out, loader))
		mr.FastForward(2 * time.Minute)
		require.NoError(t, cache.FetchJSON(context.Background(), "k", &out, loader))
		require.Equal(t, 2, calls)
	})

	t.Run("loader error is not cached", func(t *testing.T) {
		cache, _ := testCache(t)

		boom := errors.New("boom")
		var out LedgerSummary
		err := cache.FetchJSON(context.Background(), "k", &out, func(ctx context.Context) (any, error) {
			return nil, boom
		})
		require.ErrorIs(t, err, boom)

		require.NoError(t, cache.FetchJSON(context.Background(), "k", &out, func(ctx context.Context) (any, error) {
			return LedgerSummary{Year: 2025}, nil
		}))
		require.Equal(t, 2025, out.Year)
	})

	t.Run("nil client degrades to direct load", func(t *testing.T) {
		cache := NewCache(nil, time.Minute)
		var out LedgerSummary
		require.NoError(t, cache.FetchJSON(context.Background(), "k", &out, func(ctx context.Context) (any, error) {
			return LedgerSummary{Year: 2026}, nil
		}))
		require.Equal(t, 2026, out.Year)
	})

	t.Run("nil loader is refused", func(t *testing.T) {
		cache, _ := testCache(t)
		var out LedgerSummary
		require.Error(t, cache.FetchJSON(context.Background(), "k", &out, nil))
	})
}

type stubRepo struct {
	calls   int
	rows    []SummaryRow
	entries []BookEntry
	err     error
}

func (s *stubRepo) LedgerSummary(ctx context.Context, year int) ([]SummaryRow, error) {
	s.calls++
	return s.rows, s.err
}

func (s *stubRepo) VoucherBook(ctx context.Context, year int) ([]BookEntry, error) {
	s.calls++
	return s.entries, s.err
}

func TestServiceLedgerSummary(t *testing.T) {
	cache, _ := testCache(t)
	repo := &stubRepo{rows: []SummaryRow{
		{AccountCode: "1.1", AccountName: "Caja", AccountType: "ASSET", Debit: 119_000, Balance: 119_000},
	}}
	svc := NewService(repo, cache)

	got, err := svc.LedgerSummary(context.Background(), 2026)
	require.NoError(t, err)
	require.Equal(t, 2026, got.Year)
	require.Len(t, got.Rows, 1)

	// different years use different keys
	_, err = svc.LedgerSummary(context.Background(), 2025)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)

	_, err = svc.LedgerSummary(context.Background(), 2026)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestServiceVoucherBook(t *testing.T) {
	cache, _ := testCache(t)
	repo := &stubRepo{entries: []BookEntry{{
		VoucherNumber: "V2026-1",
		DocumentType:  "factura",
		Total:         119_000,
		Status:        "posted",
		Lines: []BookLine{
			{AccountCode: "1.2.01", AccountName: "Clientes por cobrar", Debit: 119_000},
			{AccountCode: "4.1.01", AccountName: "Honorarios", Credit: 100_000},
			{AccountCode: "2.1.05", AccountName: "IVA por pagar", Credit: 19_000},
		},
	}}}
	svc := NewService(repo, cache)

	book, err := svc.VoucherBook(context.Background(), 2026)
	require.NoError(t, err)
	require.Equal(t, 2026, book.Year)
	require.Len(t, book.Entries, 1)
	require.Len(t, book.Entries[0].Lines, 3)

	_, err = svc.VoucherBook(context.Background(), 2026)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)
}
