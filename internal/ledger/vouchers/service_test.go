package vouchers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veritas-erp/veritas-erp/internal/audit"
	"github.com/veritas-erp/veritas-erp/internal/ledger/accounts"
	"github.com/veritas-erp/veritas-erp/internal/ledger/shared"
	internalShared "github.com/veritas-erp/veritas-erp/internal/shared"
)

// memStore is the committed state behind the fake repository. WithTx runs the
// closure against a copy and swaps it in only on success, mirroring the
// all-or-nothing behavior of the real transaction.
type memStore struct {
	accounts map[int64]accounts.Account
	counters map[int]int64
	vouchers map[int64]Voucher
	lines    map[int64][]Line
	claimed  map[string]bool
	audits   []audit.Entry
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[int64]accounts.Account{
			1: {ID: 1, Code: "1.1.01", Name: "Caja", Type: accounts.AccountTypeAsset, IsActive: true},
			2: {ID: 2, Code: "4.1.01", Name: "Honorarios", Type: accounts.AccountTypeIncome, IsActive: true},
			3: {ID: 3, Code: "2.1.05", Name: "IVA por pagar", Type: accounts.AccountTypeLiability, IsActive: true},
			4: {ID: 4, Code: "1.1.09", Name: "Cuenta cerrada", Type: accounts.AccountTypeAsset, IsActive: false},
		},
		counters: map[int]int64{},
		vouchers: map[int64]Voucher{},
		lines:    map[int64][]Line{},
		claimed:  map[string]bool{},
	}
}

func (s *memStore) clone() *memStore {
	cp := &memStore{
		accounts: map[int64]accounts.Account{},
		counters: map[int]int64{},
		vouchers: map[int64]Voucher{},
		lines:    map[int64][]Line{},
		claimed:  map[string]bool{},
		audits:   append([]audit.Entry(nil), s.audits...),
		nextID:   s.nextID,
	}
	for k, v := range s.accounts {
		cp.accounts[k] = v
	}
	for k, v := range s.counters {
		cp.counters[k] = v
	}
	for k, v := range s.vouchers {
		cp.vouchers[k] = v
	}
	for k, v := range s.lines {
		cp.lines[k] = append([]Line(nil), v...)
	}
	for k, v := range s.claimed {
		cp.claimed[k] = v
	}
	return cp
}

type memRepo struct {
	store    *memStore
	auditErr error
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := r.store.clone()
	if err := fn(ctx, &memTx{store: staged, auditErr: r.auditErr}); err != nil {
		return err
	}
	*r.store = *staged
	return nil
}

func (r *memRepo) Get(ctx context.Context, id int64) (Voucher, error) {
	v, ok := r.store.vouchers[id]
	if !ok {
		return Voucher{}, shared.ErrVoucherNotFound
	}
	v.Lines = append([]Line(nil), r.store.lines[id]...)
	return v, nil
}

func (r *memRepo) List(ctx context.Context, filters ListFilters, page internalShared.Page) ([]Voucher, int, error) {
	var out []Voucher
	for _, v := range r.store.vouchers {
		if filters.Year != 0 && v.IssueDate.Year() != filters.Year {
			continue
		}
		if filters.Status != "" && v.Status != filters.Status {
			continue
		}
		out = append(out, v)
	}
	return out, len(out), nil
}

type memTx struct {
	store    *memStore
	auditErr error
}

func (t *memTx) ClaimIdempotencyKey(ctx context.Context, key string) error {
	if t.store.claimed[key] {
		return internalShared.ErrIdempotencyConflict
	}
	t.store.claimed[key] = true
	return nil
}

func (t *memTx) GetAccountForPosting(ctx context.Context, accountID int64) (accounts.Account, error) {
	a, ok := t.store.accounts[accountID]
	if !ok {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func (t *memTx) NextSequence(ctx context.Context, year int) (int64, error) {
	t.store.counters[year]++
	return t.store.counters[year], nil
}

func (t *memTx) InsertVoucher(ctx context.Context, in CreateVoucherInput, number string) (Voucher, error) {
	t.store.nextID++
	v := Voucher{
		ID:           t.store.nextID,
		Number:       number,
		DocumentType: in.DocumentType,
		FolioNumber:  in.FolioNumber,
		IssueDate:    in.IssueDate,
		Description:  in.Description,
		Subtotal:     in.Subtotal,
		TaxAmount:    in.TaxAmount,
		Total:        in.Total,
		Status:       StatusPending,
		CreatedBy:    in.CreatedBy,
	}
	t.store.vouchers[v.ID] = v
	return v, nil
}

func (t *memTx) InsertLines(ctx context.Context, voucherID int64, lines []LineInput) error {
	for idx, in := range lines {
		t.store.lines[voucherID] = append(t.store.lines[voucherID], Line{
			VoucherID: voucherID,
			AccountID: in.AccountID,
			Debit:     in.Debit,
			Credit:    in.Credit,
			LineOrder: idx,
		})
	}
	return nil
}

func (t *memTx) GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error) {
	v, ok := t.store.vouchers[id]
	if !ok {
		return Voucher{}, shared.ErrVoucherNotFound
	}
	return v, nil
}

func (t *memTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	v, ok := t.store.vouchers[id]
	if !ok {
		return shared.ErrVoucherNotFound
	}
	v.Status = status
	t.store.vouchers[id] = v
	return nil
}

func (t *memTx) RecordAudit(ctx context.Context, entry audit.Entry) error {
	if t.auditErr != nil {
		return t.auditErr
	}
	t.store.audits = append(t.store.audits, entry)
	return nil
}

func newTestService(store *memStore) (*Service, *memRepo) {
	repo := &memRepo{store: store}
	svc := NewService(repo)
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) })
	return svc, repo
}

func TestServiceCreate(t *testing.T) {
	t.Run("issues first number of the year and records audit", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)

		uid := int64(7)
		ctx := internalShared.ContextWithActor(context.Background(),
			internalShared.Actor{UserID: &uid, IPAddress: "10.0.0.5"})

		created, err := svc.Create(ctx, validInput())
		require.NoError(t, err)
		require.Equal(t, "V2026-1", created.Number)
		require.Equal(t, StatusPending, created.Status)
		require.Len(t, created.Lines, 3)

		require.Len(t, store.audits, 1)
		entry := store.audits[0]
		require.Equal(t, audit.ActionCreate, entry.Action)
		require.Equal(t, "voucher", entry.EntityType)
		require.Equal(t, "1", entry.EntityID)
		require.NotNil(t, entry.UserID)
		require.Equal(t, int64(7), *entry.UserID)
		require.Equal(t, "10.0.0.5", entry.IPAddress)

		var snap map[string]any
		require.NoError(t, json.Unmarshal(entry.NewValues, &snap))
		require.Equal(t, "V2026-1", snap["voucher_number"])
		require.Equal(t, "pending", snap["status"])
	})

	t.Run("numbers increase within a year", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)

		first, err := svc.Create(context.Background(), validInput())
		require.NoError(t, err)
		second, err := svc.Create(context.Background(), validInput())
		require.NoError(t, err)
		require.Equal(t, "V2026-1", first.Number)
		require.Equal(t, "V2026-2", second.Number)

		in := validInput()
		in.IssueDate = time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC)
		next, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
		require.Equal(t, "V2027-1", next.Number)
	})

	t.Run("rejects unknown account and persists nothing", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)

		in := validInput()
		in.Lines[1].AccountID = 99
		_, err := svc.Create(context.Background(), in)
		require.ErrorIs(t, err, shared.ErrInvalidAccount)
		require.Contains(t, err.Error(), "line 2 references unknown account 99")
		require.Empty(t, store.vouchers)
		require.Empty(t, store.audits)
		require.Zero(t, store.counters[2026])
	})

	t.Run("unknown account wins over amount mismatch", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)

		in := validInput()
		in.Lines[0].AccountID = 99
		in.Total = 120_000
		_, err := svc.Create(context.Background(), in)
		require.ErrorIs(t, err, shared.ErrInvalidAccount)
		require.NotErrorIs(t, err, shared.ErrAmountMismatch)
	})

	t.Run("amount mismatch surfaces once accounts resolve", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)

		in := validInput()
		in.Total = 120_000
		_, err := svc.Create(context.Background(), in)
		require.ErrorIs(t, err, shared.ErrAmountMismatch)
		require.Empty(t, store.vouchers)
		require.Zero(t, store.counters[2026])
	})

	t.Run("rejects inactive account", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)

		in := validInput()
		in.Lines[0].AccountID = 4
		_, err := svc.Create(context.Background(), in)
		require.ErrorIs(t, err, shared.ErrInvalidAccount)
		require.Contains(t, err.Error(), "inactive account 1.1.09")
	})

	t.Run("audit failure rolls back the voucher", func(t *testing.T) {
		store := newMemStore()
		repo := &memRepo{store: store, auditErr: audit.ErrAuditPersistence}
		svc := NewService(repo)

		_, err := svc.Create(context.Background(), validInput())
		require.ErrorIs(t, err, audit.ErrAuditPersistence)
		require.Empty(t, store.vouchers)
		require.Empty(t, store.lines)
	})

	t.Run("rejects replayed idempotency key", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)

		in := validInput()
		in.IdempotencyKey = "req-123"
		_, err := svc.Create(context.Background(), in)
		require.NoError(t, err)

		_, err = svc.Create(context.Background(), in)
		require.ErrorIs(t, err, internalShared.ErrIdempotencyConflict)
		require.Len(t, store.vouchers, 1)
	})

	t.Run("actor from context marks the entry when CreatedBy absent", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)

		_, err := svc.Create(context.Background(), validInput())
		require.NoError(t, err)
		require.Nil(t, store.audits[0].UserID)
	})
}

func TestServiceTransitions(t *testing.T) {
	seed := func(t *testing.T) (*Service, *memStore, int64) {
		t.Helper()
		store := newMemStore()
		svc, _ := newTestService(store)
		v, err := svc.Create(context.Background(), validInput())
		require.NoError(t, err)
		return svc, store, v.ID
	}

	t.Run("post then pay walks the lifecycle", func(t *testing.T) {
		svc, store, id := seed(t)

		posted, err := svc.Post(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, StatusPosted, posted.Status)

		paid, err := svc.MarkPaid(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, StatusPaid, paid.Status)

		// create + two transitions
		require.Len(t, store.audits, 3)
		last := store.audits[2]
		require.Equal(t, audit.ActionUpdate, last.Action)
		var oldVals, newVals map[string]any
		require.NoError(t, json.Unmarshal(last.OldValues, &oldVals))
		require.NoError(t, json.Unmarshal(last.NewValues, &newVals))
		require.Equal(t, "posted", oldVals["status"])
		require.Equal(t, "paid", newVals["status"])
	})

	t.Run("posting twice fails", func(t *testing.T) {
		svc, _, id := seed(t)

		_, err := svc.Post(context.Background(), id)
		require.NoError(t, err)
		_, err = svc.Post(context.Background(), id)
		require.ErrorIs(t, err, shared.ErrInvalidStateTransition)
		require.Contains(t, err.Error(), "is posted, expected pending")
	})

	t.Run("paying a pending voucher fails", func(t *testing.T) {
		svc, store, id := seed(t)

		_, err := svc.MarkPaid(context.Background(), id)
		require.ErrorIs(t, err, shared.ErrInvalidStateTransition)
		require.Equal(t, StatusPending, store.vouchers[id].Status)
		require.Len(t, store.audits, 1)
	})

	t.Run("unknown voucher", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)
		_, err := svc.Post(context.Background(), 42)
		require.ErrorIs(t, err, shared.ErrVoucherNotFound)
	})
}

func TestServiceList(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	in := validInput()
	in.IssueDate = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(context.Background(), in)
	require.NoError(t, err)

	got, total, err := svc.List(context.Background(), ListFilters{Year: 2026}, internalShared.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, got, 1)
	require.Equal(t, 2026, got[0].IssueDate.Year())
}

func TestServiceCreateValidationShortCircuits(t *testing.T) {
	// an invalid input must fail before the repository is touched
	svc := NewService(nil)
	in := validInput()
	in.Lines = in.Lines[:1]
	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)
	require.True(t, errors.Is(err, shared.ErrTooFewLines))
}
