package vouchers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/veritas-erp/veritas-erp/internal/ledger/shared"
	"github.com/veritas-erp/veritas-erp/internal/platform/httpx"
	internalShared "github.com/veritas-erp/veritas-erp/internal/shared"
)

// Handler wires HTTP endpoints for the voucher ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

type lineRequest struct {
	AccountID   int64   `json:"accountId" validate:"required"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   int64   `json:"unitPrice"`
	TotalAmount int64   `json:"totalAmount"`
	IsTaxable   bool    `json:"isTaxable"`
	Debit       int64   `json:"debitAmount"`
	Credit      int64   `json:"creditAmount"`
}

type createVoucherRequest struct {
	DocumentType string        `json:"documentType" validate:"required,oneof=factura boleta voucher"`
	FolioNumber  string        `json:"folioNumber"`
	IssueDate    string        `json:"issueDate" validate:"required"`
	Description  string        `json:"description"`
	Subtotal     int64         `json:"subtotal"`
	TaxAmount    int64         `json:"taxAmount"`
	Total        int64         `json:"total"`
	Lines        []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type lineDTO struct {
	ID          int64   `json:"id,omitempty"`
	AccountID   int64   `json:"accountId"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   int64   `json:"unitPrice"`
	TotalAmount int64   `json:"totalAmount"`
	IsTaxable   bool    `json:"isTaxable"`
	Debit       int64   `json:"debitAmount"`
	Credit      int64   `json:"creditAmount"`
	LineOrder   int     `json:"lineOrder"`
}

type voucherDTO struct {
	ID           int64     `json:"id"`
	Number       string    `json:"voucherNumber"`
	DocumentType string    `json:"documentType"`
	FolioNumber  string    `json:"folioNumber,omitempty"`
	IssueDate    string    `json:"issueDate"`
	Description  string    `json:"description,omitempty"`
	Subtotal     int64     `json:"subtotal"`
	TaxAmount    int64     `json:"taxAmount"`
	Total        int64     `json:"total"`
	Status       string    `json:"status"`
	CreatedBy    *int64    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	Lines        []lineDTO `json:"lines,omitempty"`
}

type listResponse struct {
	Vouchers   []voucherDTO `json:"vouchers"`
	TotalCount int          `json:"totalCount"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createVoucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	issueDate, err := time.Parse("2006-01-02", req.IssueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "issueDate must be YYYY-MM-DD")
		return
	}

	in := CreateVoucherInput{
		DocumentType:   DocumentType(req.DocumentType),
		FolioNumber:    req.FolioNumber,
		IssueDate:      issueDate,
		Description:    req.Description,
		Subtotal:       req.Subtotal,
		TaxAmount:      req.TaxAmount,
		Total:          req.Total,
		CreatedBy:      internalShared.ActorFromContext(r.Context()).UserID,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	for _, line := range req.Lines {
		in.Lines = append(in.Lines, LineInput{
			AccountID:   line.AccountID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalAmount: line.TotalAmount,
			IsTaxable:   line.IsTaxable,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}

	voucher, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, "create voucher", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toVoucherDTO(voucher))
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Post)
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.MarkPaid)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (Voucher, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "voucher id must be numeric")
		return
	}
	voucher, err := op(r.Context(), id)
	if err != nil {
		h.respondError(w, "transition voucher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toVoucherDTO(voucher))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "voucher id must be numeric")
		return
	}
	voucher, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get voucher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toVoucherDTO(voucher))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filters ListFilters
	var page internalShared.Page
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "year must be numeric")
			return
		}
		filters.Year = year
	}
	filters.Status = Status(q.Get("status"))
	page.Limit, _ = strconv.Atoi(q.Get("limit"))
	page.Offset, _ = strconv.Atoi(q.Get("offset"))

	vouchers, total, err := h.service.List(r.Context(), filters, page)
	if err != nil {
		h.respondError(w, "list vouchers", err)
		return
	}
	out := make([]voucherDTO, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, toVoucherDTO(v))
	}
	httpx.JSON(w, http.StatusOK, listResponse{Vouchers: out, TotalCount: total})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrUnbalanced), errors.Is(err, shared.ErrTooFewLines):
		httpx.ProblemCode(w, http.StatusUnprocessableEntity, "UNBALANCED_VOUCHER", "Unbalanced Voucher", err.Error())
	case errors.Is(err, shared.ErrAmountMismatch):
		httpx.ProblemCode(w, http.StatusUnprocessableEntity, "AMOUNT_MISMATCH", "Amount Mismatch", err.Error())
	case errors.Is(err, shared.ErrInvalidAccount):
		httpx.ProblemCode(w, http.StatusUnprocessableEntity, "INVALID_ACCOUNT", "Invalid Account", err.Error())
	case errors.Is(err, shared.ErrInvalidStateTransition):
		httpx.ProblemCode(w, http.StatusConflict, "INVALID_STATE_TRANSITION", "Invalid State Transition", err.Error())
	case errors.Is(err, shared.ErrVoucherNotFound):
		httpx.ProblemCode(w, http.StatusNotFound, "VOUCHER_NOT_FOUND", "Voucher Not Found", err.Error())
	case errors.Is(err, internalShared.ErrIdempotencyConflict):
		httpx.ProblemCode(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "Already Processed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func toVoucherDTO(v Voucher) voucherDTO {
	dto := voucherDTO{
		ID:           v.ID,
		Number:       v.Number,
		DocumentType: string(v.DocumentType),
		FolioNumber:  v.FolioNumber,
		IssueDate:    v.IssueDate.Format("2006-01-02"),
		Description:  v.Description,
		Subtotal:     v.Subtotal,
		TaxAmount:    v.TaxAmount,
		Total:        v.Total,
		Status:       string(v.Status),
		CreatedBy:    v.CreatedBy,
		CreatedAt:    v.CreatedAt,
	}
	for _, l := range v.Lines {
		dto.Lines = append(dto.Lines, lineDTO{
			ID:          l.ID,
			AccountID:   l.AccountID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalAmount: l.TotalAmount,
			IsTaxable:   l.IsTaxable,
			Debit:       l.Debit,
			Credit:      l.Credit,
			LineOrder:   l.LineOrder,
		})
	}
	return dto
}
