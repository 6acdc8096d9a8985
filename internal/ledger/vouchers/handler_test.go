package vouchers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(store *memStore) chi.Router {
	svc, _ := newTestService(store)
	router := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(router)
	return router
}

const createBody = `{
	"documentType": "factura",
	"folioNumber": "F-001",
	"issueDate": "2026-03-15",
	"description": "client retainer",
	"subtotal": 100000,
	"taxAmount": 19000,
	"total": 119000,
	"lines": [
		{"accountId": 1, "debitAmount": 119000},
		{"accountId": 2, "creditAmount": 100000},
		{"accountId": 3, "creditAmount": 19000}
	]
}`

func doJSON(router chi.Router, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeVoucher(t *testing.T, rec *httptest.ResponseRecorder) voucherDTO {
	t.Helper()
	var dto voucherDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	return dto
}

func problemCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var problem struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem.Code
}

func TestHandlerCreate(t *testing.T) {
	t.Run("creates and returns the numbered voucher", func(t *testing.T) {
		router := newTestRouter(newMemStore())

		rec := doJSON(router, http.MethodPost, "/vouchers", createBody)
		require.Equal(t, http.StatusCreated, rec.Code)
		dto := decodeVoucher(t, rec)
		require.Equal(t, "V2026-1", dto.Number)
		require.Equal(t, "pending", dto.Status)
		require.Len(t, dto.Lines, 3)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		router := newTestRouter(newMemStore())
		rec := doJSON(router, http.MethodPost, "/vouchers", `{"documentType":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unknown document type at the edge", func(t *testing.T) {
		router := newTestRouter(newMemStore())
		rec := doJSON(router, http.MethodPost, "/vouchers", strings.Replace(createBody, "factura", "receipt", 1))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects bad issue date format", func(t *testing.T) {
		router := newTestRouter(newMemStore())
		rec := doJSON(router, http.MethodPost, "/vouchers", strings.Replace(createBody, "2026-03-15", "15/03/2026", 1))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "YYYY-MM-DD")
	})

	t.Run("unbalanced lines map to 422 with code", func(t *testing.T) {
		router := newTestRouter(newMemStore())
		rec := doJSON(router, http.MethodPost, "/vouchers", strings.Replace(createBody, `"creditAmount": 19000`, `"creditAmount": 20000`, 1))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Equal(t, "UNBALANCED_VOUCHER", problemCode(t, rec))
	})

	t.Run("amount mismatch maps to 422 with code", func(t *testing.T) {
		router := newTestRouter(newMemStore())
		rec := doJSON(router, http.MethodPost, "/vouchers", strings.Replace(createBody, `"total": 119000`, `"total": 118000`, 1))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Equal(t, "AMOUNT_MISMATCH", problemCode(t, rec))
	})

	t.Run("unknown account maps to 422 with code", func(t *testing.T) {
		router := newTestRouter(newMemStore())
		rec := doJSON(router, http.MethodPost, "/vouchers", strings.Replace(createBody, `"accountId": 2`, `"accountId": 99`, 1))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Equal(t, "INVALID_ACCOUNT", problemCode(t, rec))
	})

	t.Run("replayed idempotency key maps to 409", func(t *testing.T) {
		router := newTestRouter(newMemStore())

		req := httptest.NewRequest(http.MethodPost, "/vouchers", strings.NewReader(createBody))
		req.Header.Set("Idempotency-Key", "req-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		req = httptest.NewRequest(http.MethodPost, "/vouchers", strings.NewReader(createBody))
		req.Header.Set("Idempotency-Key", "req-1")
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "IDEMPOTENT_REPLAY", problemCode(t, rec))
	})
}

func TestHandlerTransitions(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doJSON(router, http.MethodPost, "/vouchers", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeVoucher(t, rec).ID

	rec = doJSON(router, http.MethodPost, fmt.Sprintf("/vouchers/%d/post", id), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "posted", decodeVoucher(t, rec).Status)

	rec = doJSON(router, http.MethodPost, fmt.Sprintf("/vouchers/%d/post", id), "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "INVALID_STATE_TRANSITION", problemCode(t, rec))

	rec = doJSON(router, http.MethodPost, fmt.Sprintf("/vouchers/%d/pay", id), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "paid", decodeVoucher(t, rec).Status)

	rec = doJSON(router, http.MethodPost, "/vouchers/999/post", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(router, http.MethodPost, "/vouchers/abc/post", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetAndList(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doJSON(router, http.MethodPost, "/vouchers", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeVoucher(t, rec).ID

	rec = doJSON(router, http.MethodGet, fmt.Sprintf("/vouchers/%d", id), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2026-03-15", decodeVoucher(t, rec).IssueDate)

	rec = doJSON(router, http.MethodGet, "/vouchers/404", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(router, http.MethodGet, "/vouchers?year=2026&status=pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.TotalCount)
	require.Len(t, list.Vouchers, 1)

	rec = doJSON(router, http.MethodGet, "/vouchers?year=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
