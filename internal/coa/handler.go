package coa

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-suite/openbal/internal/platform/httpx"
	"github.com/meridian-suite/openbal/internal/shared"
)

// Handler exposes chart-of-accounts lookups.
type Handler struct {
	logger *slog.Logger
	dir    Directory
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, dir Directory) *Handler {
	return &Handler{logger: logger, dir: dir}
}

// MountRoutes attaches chart-of-accounts routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts/{accountNumber}", h.getAccount)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if id == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	code := chi.URLParam(r, "accountNumber")
	if !ValidAccountCode(code) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "account number must be numeric")
		return
	}
	entry, err := h.dir.GetAccount(r.Context(), id.RegimeID, code)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("coa lookup", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}
