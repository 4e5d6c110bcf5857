package openbal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-suite/openbal/internal/platform/httpx"
	"github.com/meridian-suite/openbal/internal/shared"
)

// Handler wires HTTP endpoints for the opening-balance core.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	validator    *validator.Validate
	summaryGroup singleflight.Group
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers opening-balance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/periods", func(r chi.Router) {
		r.Post("/", h.createPeriod)
		r.Get("/", h.listPeriods)
		r.Route("/{periodID}", func(r chi.Router) {
			r.Get("/", h.getPeriod)
			r.Patch("/", h.updatePeriod)
			r.Delete("/", h.deletePeriod)
			r.Post("/lock", h.lockPeriod)
			r.Post("/unlock", h.unlockPeriod)
			r.Get("/summary", h.getSummary)
			r.Get("/validation", h.validatePeriod)
			r.Post("/balances", h.upsertBalance)
			r.Get("/balances", h.listBalances)
			r.Post("/balances/batch", h.batchUpsertBalances)
		})
	})
	r.Route("/balances/{balanceID}", func(r chi.Router) {
		r.Get("/", h.getBalance)
		r.Delete("/", h.deleteBalance)
		r.Get("/validation", h.validateBalance)
		r.Post("/details", h.upsertDetail)
		r.Get("/details", h.listDetails)
		r.Post("/details/batch", h.batchUpsertDetails)
	})
	r.Delete("/details/{detailID}", h.deleteDetail)
}

func (h *Handler) createPeriod(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if id == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req createPeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondFieldErrors(w, err)
		return
	}
	openingDate, err := time.Parse(dateLayout, req.OpeningDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "openingDate must be a calendar date")
		return
	}
	period, err := h.service.CreatePeriod(r.Context(), CreatePeriodInput{
		TenantID:    id.TenantID,
		ActorID:     id.UserID,
		Name:        req.PeriodName,
		OpeningDate: openingDate,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, period)
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if id == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	page, perPage := shared.PageParams(r)
	periods, total, err := h.service.ListPeriods(r.Context(), id.TenantID, perPage, shared.Offset(page, perPage))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, periodListResponse{
		Periods:    periods,
		Pagination: shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) getPeriod(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndID(w, r, "periodID")
	if !ok {
		return
	}
	period, err := h.service.GetPeriod(r.Context(), id.TenantID, periodID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) updatePeriod(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndID(w, r, "periodID")
	if !ok {
		return
	}
	var req updatePeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondFieldErrors(w, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "openingDate must be a calendar date")
		return
	}
	period, err := h.service.UpdatePeriod(r.Context(), id.TenantID, id.UserID, periodID, patch)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) deletePeriod(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndID(w, r, "periodID")
	if !ok {
		return
	}
	if err := h.service.DeletePeriod(r.Context(), id.TenantID, id.UserID, periodID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lockPeriod(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndID(w, r, "periodID")
	if !ok {
		return
	}
	period, err := h.service.LockPeriod(r.Context(), id.TenantID, id.UserID, periodID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) unlockPeriod(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndID(w, r, "periodID")
	if !ok {
		return
	}
	period, err := h.service.UnlockPeriod(r.Context(), id.TenantID, id.UserID, periodID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

// getSummary deduplicates concurrent summary reads per period; spreadsheet
// imports tend to poll this endpoint aggressively.
func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndID(w, r, "periodID")
	if !ok {
		return
	}
	key := id.TenantID.String() + ":" + periodID.String()
	value, err, _ := h.summaryGroup.Do(key, func() (any, error) {
		// The fetch is shared with piggybacked callers, so it must outlive
		// the first request's cancellation.
		return h.service.GetSummary(context.WithoutCancel(r.Context()), id.TenantID, periodID)
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, value)
}

func (h *Handler) validatePeriod(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndID(w, r, "periodID")
	if !ok {
		return
	}
	validation, err := h.service.ValidatePeriod(r.Context(), id.TenantID, periodID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, validation)
}

func (h *Handler) upsertBalance(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndID(w, r, "periodID")
	if !ok {
		return
	}
	var req upsertBalanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondFieldErrors(w, err)
		return
	}
	balance, warnings, err := h.service.UpsertBalance(r.Context(), UpsertBalanceInput{
		TenantID:      id.TenantID,
		ActorID:       id.UserID,
		PeriodID:      periodID,
		RegimeID:      id.RegimeID,
		AccountNumber: req.AccountNumber,
		CurrencyID:    req.CurrencyID,
		Debit:         req.Debit,
		Credit:        req.Credit,
		HasDetails:    req.HasDetails,
		Note:          req.Note,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{Balance: balance, Warnings: warnings})
}

func (h *Handler) listBalances(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndID(w, r, "periodID")
	if !ok {
		return
	}
	page, perPage := shared.PageParams(r)
	balances, total, err := h.service.ListBalances(r.Context(), id.TenantID, periodID, perPage, shared.Offset(page, perPage))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceListResponse{
		Balances:   balances,
		Pagination: shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) batchUpsertBalances(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndID(w, r, "periodID")
	if !ok {
		return
	}
	var req balanceBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondFieldErrors(w, err)
		return
	}
	result, err := h.service.BatchUpsertBalances(r.Context(), id.TenantID, id.UserID, periodID, id.RegimeID, req.CurrencyID, req.Items)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	id, balanceID, ok := h.identityAndID(w, r, "balanceID")
	if !ok {
		return
	}
	balance, err := h.service.GetBalance(r.Context(), id.TenantID, balanceID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) deleteBalance(w http.ResponseWriter, r *http.Request) {
	id, balanceID, ok := h.identityAndID(w, r, "balanceID")
	if !ok {
		return
	}
	if err := h.service.DeleteBalance(r.Context(), id.TenantID, balanceID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) validateBalance(w http.ResponseWriter, r *http.Request) {
	id, balanceID, ok := h.identityAndID(w, r, "balanceID")
	if !ok {
		return
	}
	check, err := h.service.ValidateBalanceDetails(r.Context(), id.TenantID, balanceID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, check)
}

func (h *Handler) upsertDetail(w http.ResponseWriter, r *http.Request) {
	id, balanceID, ok := h.identityAndID(w, r, "balanceID")
	if !ok {
		return
	}
	var req upsertDetailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	in := UpsertDetailInput{
		TenantID:    id.TenantID,
		ActorID:     id.UserID,
		BalanceID:   balanceID,
		Dimensions:  req.Dimensions,
		Debit:       req.Debit,
		Credit:      req.Credit,
		Description: req.Description,
	}
	if req.DetailID != nil {
		in.DetailID = *req.DetailID
	}
	detail, err := h.service.UpsertDetail(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) listDetails(w http.ResponseWriter, r *http.Request) {
	id, balanceID, ok := h.identityAndID(w, r, "balanceID")
	if !ok {
		return
	}
	details, err := h.service.ListDetails(r.Context(), id.TenantID, balanceID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detailListResponse{Details: details})
}

func (h *Handler) batchUpsertDetails(w http.ResponseWriter, r *http.Request) {
	id, balanceID, ok := h.identityAndID(w, r, "balanceID")
	if !ok {
		return
	}
	var req detailBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondFieldErrors(w, err)
		return
	}
	details, err := h.service.BatchUpsertDetails(r.Context(), id.TenantID, id.UserID, balanceID, req.Items)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detailBatchResponse{Details: details})
}

func (h *Handler) deleteDetail(w http.ResponseWriter, r *http.Request) {
	id, detailID, ok := h.identityAndID(w, r, "detailID")
	if !ok {
		return
	}
	if err := h.service.DeleteDetail(r.Context(), id.TenantID, detailID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) identityAndID(w http.ResponseWriter, r *http.Request, param string) (*shared.Identity, uuid.UUID, bool) {
	id := shared.IdentityFromContext(r.Context())
	if id == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return nil, uuid.Nil, false
	}
	value, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed "+param)
		return nil, uuid.Nil, false
	}
	return id, value, true
}

func (h *Handler) respondFieldErrors(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	httpx.ProblemWith(w, http.StatusBadRequest, "Validation Failed", "request body failed validation", fields)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var imbalance *ImbalanceError
	switch {
	case errors.As(err, &imbalance):
		httpx.ProblemWith(w, http.StatusConflict, "Period Not Balanced", imbalance.Error(), imbalance.Violations)
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnknownAccount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unknown Account", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrLocked):
		httpx.Problem(w, http.StatusConflict, "Period Locked", err.Error())
	case errors.Is(err, ErrBatchTooLarge):
		httpx.Problem(w, http.StatusRequestEntityTooLarge, "Batch Too Large", err.Error())
	case errors.Is(err, ErrConcurrencyConflict):
		httpx.Problem(w, http.StatusConflict, "Concurrency Conflict", err.Error())
	default:
		h.logger.Error("openbal handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
