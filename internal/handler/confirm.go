package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/shopdesk/internal/auth"
	"github.com/DukeRupert/shopdesk/internal/confirm"
	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/view"
)

// ConfirmHandler runs the delete confirmation dialogs. Resource handlers
// open a dialog with Open; the modal then posts back here.
//
// Routes handled:
// - POST /confirm/{token}        -> Confirm
// - POST /confirm/{token}/cancel -> Cancel
type ConfirmHandler struct {
	dialogs *confirm.Registry
	logger  *slog.Logger
}

// NewConfirmHandler creates a new ConfirmHandler.
func NewConfirmHandler(dialogs *confirm.Registry, logger *slog.Logger) *ConfirmHandler {
	return &ConfirmHandler{dialogs: dialogs, logger: logger}
}

// RegisterRoutes registers the dialog routes with the provided mux.
func (h *ConfirmHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /confirm/{token}", requireUser(http.HandlerFunc(h.Confirm)))
	mux.Handle("POST /confirm/{token}/cancel", requireUser(http.HandlerFunc(h.Cancel)))
}

// Open creates a dialog for target and renders the modal. deleter runs at
// most once, when the operator who opened it confirms.
func (h *ConfirmHandler) Open(w http.ResponseWriter, r *http.Request, target confirm.Target, deleter confirm.Deleter) {
	token := h.dialogs.Open(auth.Token(r.Context()), target, deleter)
	h.logger.Debug("delete dialog opened", "resource", target.Resource, "id", target.ID)
	RenderComponent(w, r, h.logger, view.ConfirmModal(token, target))
}

// Confirm deletes the record behind the token. On success the browser is
// sent to the target's page; a failed delete closes the modal and shows
// the error.
func (h *ConfirmHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	target, err := h.dialogs.Confirm(r.Context(), auth.Token(r.Context()), r.PathValue("token"))
	switch {
	case errors.Is(err, confirm.ErrNotOpen):
		RenderComponent(w, r, h.logger, view.ClosedModal("This dialog is no longer open."))
		return
	case errors.Is(err, confirm.ErrBusy):
		ErrorResponse(w, r, h.logger, domain.Conflict("confirm.delete", "The record is already being deleted."))
		return
	case err != nil:
		h.logger.Warn("delete failed",
			"resource", target.Resource,
			"id", target.ID,
			"error", err,
		)
		RenderComponent(w, r, h.logger, view.ClosedModal(domain.ErrorMessage(err)))
		return
	}

	h.logger.Info("record deleted", "resource", target.Resource, "id", target.ID)
	returnTo := target.ReturnTo
	if returnTo == "" {
		returnTo = HomePath
	}
	redirect(w, r, withMarker(returnTo, "deleted"))
}

// Cancel closes the dialog without deleting anything.
func (h *ConfirmHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !h.dialogs.Cancel(auth.Token(r.Context()), r.PathValue("token")) {
		h.logger.Debug("cancel of a closed dialog", "token", r.PathValue("token"))
	}
	RenderComponent(w, r, h.logger, view.ClosedModal(""))
}
