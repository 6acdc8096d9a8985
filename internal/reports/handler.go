package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/veritas-erp/veritas-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for ledger reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/ledger-summary", h.handleSummary)
	r.Get("/reports/ledger-summary.csv", h.handleSummaryCSV)
	r.Get("/reports/voucher-book", h.handleVoucherBook)
}

type summaryRowDTO struct {
	AccountCode string `json:"accountCode"`
	AccountName string `json:"accountName"`
	AccountType string `json:"accountType"`
	Debit       int64  `json:"debit"`
	Credit      int64  `json:"credit"`
	Balance     int64  `json:"balance"`
}

type summaryResponse struct {
	Year int             `json:"year,omitempty"`
	Rows []summaryRowDTO `json:"rows"`
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.loadSummary(w, r)
	if !ok {
		return
	}
	out := summaryResponse{Year: summary.Year, Rows: make([]summaryRowDTO, 0, len(summary.Rows))}
	for _, row := range summary.Rows {
		out.Rows = append(out.Rows, summaryRowDTO{
			AccountCode: row.AccountCode,
			AccountName: row.AccountName,
			AccountType: row.AccountType,
			Debit:       row.Debit,
			Credit:      row.Credit,
			Balance:     row.Balance,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleSummaryCSV(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.loadSummary(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger-summary.csv"`)
	if err := WriteSummaryCSV(w, summary); err != nil {
		h.logger.Error("write summary csv", slog.Any("error", err))
	}
}

type bookLineDTO struct {
	AccountCode string `json:"accountCode"`
	AccountName string `json:"accountName"`
	Description string `json:"description,omitempty"`
	Debit       int64  `json:"debit"`
	Credit      int64  `json:"credit"`
}

type bookEntryDTO struct {
	VoucherNumber string        `json:"voucherNumber"`
	DocumentType  string        `json:"documentType"`
	FolioNumber   string        `json:"folioNumber,omitempty"`
	IssueDate     string        `json:"issueDate"`
	Description   string        `json:"description,omitempty"`
	Total         int64         `json:"total"`
	Status        string        `json:"status"`
	Lines         []bookLineDTO `json:"lines"`
}

type bookResponse struct {
	Year    int            `json:"year"`
	Entries []bookEntryDTO `json:"entries"`
}

func (h *Handler) handleVoucherBook(w http.ResponseWriter, r *http.Request) {
	year, ok := parseYear(w, r)
	if !ok {
		return
	}
	if year == 0 {
		year = time.Now().Year()
	}
	book, err := h.service.VoucherBook(r.Context(), year)
	if err != nil {
		h.logger.Error("voucher book", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := bookResponse{Year: book.Year, Entries: make([]bookEntryDTO, 0, len(book.Entries))}
	for _, e := range book.Entries {
		entry := bookEntryDTO{
			VoucherNumber: e.VoucherNumber,
			DocumentType:  e.DocumentType,
			FolioNumber:   e.FolioNumber,
			IssueDate:     e.IssueDate.Format("2006-01-02"),
			Description:   e.Description,
			Total:         e.Total,
			Status:        e.Status,
			Lines:         make([]bookLineDTO, 0, len(e.Lines)),
		}
		for _, l := range e.Lines {
			entry.Lines = append(entry.Lines, bookLineDTO{
				AccountCode: l.AccountCode,
				AccountName: l.AccountName,
				Description: l.Description,
				Debit:       l.Debit,
				Credit:      l.Credit,
			})
		}
		out.Entries = append(out.Entries, entry)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) loadSummary(w http.ResponseWriter, r *http.Request) (LedgerSummary, bool) {
	year, ok := parseYear(w, r)
	if !ok {
		return LedgerSummary{}, false
	}
	summary, err := h.service.LedgerSummary(r.Context(), year)
	if err != nil {
		h.logger.Error("ledger summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return LedgerSummary{}, false
	}
	return summary, true
}

func parseYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "year must be numeric")
		return 0, false
	}
	return year, true
}
