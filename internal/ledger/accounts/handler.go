package accounts

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/veritas-erp/veritas-erp/internal/ledger/shared"
	"github.com/veritas-erp/veritas-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the chart of accounts.
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

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.handleList)
	r.Post("/accounts", h.handleCreate)
	r.Post("/accounts/{code}/deactivate", h.handleDeactivate)
}

type createAccountRequest struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY INCOME EXPENSE"`
	Category string `json:"category"`
}

type accountDTO struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Category string `json:"category,omitempty"`
	IsActive bool   `json:"isActive"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.Create(r.Context(), CreateAccountInput{
		Code:     req.Code,
		Name:     req.Name,
		Type:     AccountType(req.Type),
		Category: req.Category,
	})
	if err != nil {
		h.respondError(w, "create account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountDTO(account))
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.service.Deactivate(r.Context(), code); err != nil {
		h.respondError(w, "deactivate account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, "list accounts", err)
		return
	}
	out := make([]accountDTO, 0, len(list))
	for _, a := range list {
		out = append(out, toAccountDTO(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrDuplicateCode):
		httpx.ProblemCode(w, http.StatusConflict, "DUPLICATE_CODE", "Duplicate Code", err.Error())
	case errors.Is(err, shared.ErrAccountNotFound):
		httpx.ProblemCode(w, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account Not Found", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func toAccountDTO(a Account) accountDTO {
	return accountDTO{
		ID:       a.ID,
		Code:     a.Code,
		Name:     a.Name,
		Type:     string(a.Type),
		Category: a.Category,
		IsActive: a.IsActive,
	}
}
