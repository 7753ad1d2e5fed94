package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/DukeRupert/shopdesk/internal/address"
	"github.com/DukeRupert/shopdesk/internal/confirm"
	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/draft"
	"github.com/DukeRupert/shopdesk/internal/form"
	"github.com/DukeRupert/shopdesk/internal/service"
	"github.com/DukeRupert/shopdesk/internal/view"
)

// CustomerHandler serves the customer list and the edit card.
//
// Routes handled:
// - GET  /customers                 -> Index
// - GET  /customers/new             -> New
// - GET  /customers/{id}            -> Show
// - POST /customers/drafts/{draft}  -> Save
// - GET  /customers/{id}/delete     -> ConfirmDelete (modal)
type CustomerHandler struct {
	customers *service.CustomerService
	uploads   *service.UploadService
	confirms  *ConfirmHandler
	renderer  TemplateRenderer
	logger    *slog.Logger
	isSecure  bool
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(
	customers *service.CustomerService,
	uploads *service.UploadService,
	confirms *ConfirmHandler,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
		uploads:   uploads,
		confirms:  confirms,
		renderer:  renderer,
		logger:    logger,
		isSecure:  isSecure,
	}
}

// RegisterRoutes registers all customer routes with the provided mux.
func (h *CustomerHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /customers", requireUser(http.HandlerFunc(h.Index)))
	mux.Handle("GET /customers/new", requireUser(http.HandlerFunc(h.New)))
	mux.Handle("GET /customers/{id}", requireUser(http.HandlerFunc(h.Show)))
	mux.Handle("POST /customers/drafts/{draft}", requireUser(http.HandlerFunc(h.Save)))
	mux.Handle("GET /customers/{id}/delete", requireUser(http.HandlerFunc(h.ConfirmDelete)))
}

// CustomerListData is passed to the customers page.
type CustomerListData struct {
	Page
	Customers  []domain.Customer
	Params     domain.ListParams
	Pagination PaginationData
}

// CustomerFormData is passed to the customer_form page.
type CustomerFormData struct {
	Page
	DraftID    string
	CustomerID string
	IsNew      bool
	Form       form.CustomerForm
	Address    templ.Component
	Errors     *domain.ValidationError
}

// Index renders one page of customers.
func (h *CustomerHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := newPage(w, r, h.isSecure)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := parseListParams(r)
	list, err := h.customers.List(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.renderer.RenderHTTP(w, "customers", CustomerListData{
		Page:       page,
		Customers:  list.Data,
		Params:     params,
		Pagination: newPagination(params, list.Total),
	})
}

// New renders an empty card. New customers have no address block.
func (h *CustomerHandler) New(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, "")
}

// Show renders the card of an existing customer with the address cascade
// already resolved for the stored selection.
func (h *CustomerHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, r.PathValue("id"))
}

func (h *CustomerHandler) open(w http.ResponseWriter, r *http.Request, id string) {
	d, f, fields, err := h.customers.Open(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.renderCard(w, r, http.StatusOK, d, f, d.Address, fields, nil)
}

// Save validates the card and saves the customer. Field errors re-render
// the card with the operator's input kept.
func (h *CustomerHandler) Save(w http.ResponseWriter, r *http.Request) {
	draftID, err := uuid.Parse(r.PathValue("draft"))
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}
	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("customer.save", "Invalid form submission. Please try again."))
		return
	}

	d, err := h.uploads.Draft(r.Context(), draftID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	f := form.ParseCustomer(r.PostForm, !d.IsNew())
	saved, err := h.customers.Save(r.Context(), draftID, f)
	if err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		h.renderCard(w, r, http.StatusUnprocessableEntity, d, f, f.Address.Selection(), h.customers.Fields(d), verr)
		return
	}

	h.logger.Info("customer saved", "customer_id", saved.ID)
	if d.IsNew() {
		redirect(w, r, withMarker("/customers", "created"))
		return
	}
	redirect(w, r, withMarker("/customers/"+d.RecordID, "saved"))
}

func (h *CustomerHandler) renderCard(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	d draft.Draft,
	f form.CustomerForm,
	sel domain.AddressSelection,
	fields [3]address.Field,
	verr *domain.ValidationError,
) {
	page, err := newPage(w, r, h.isSecure)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.renderer.RenderHTTPStatus(w, status, "customer_form", CustomerFormData{
		Page:       page,
		DraftID:    d.ID.String(),
		CustomerID: d.RecordID,
		IsNew:      d.IsNew(),
		Form:       f,
		Address:    view.AddressSelects(d.ID.String(), !d.IsNew(), sel, fields, verr),
		Errors:     verr,
	})
}

// ConfirmDelete opens the delete dialog for a customer.
func (h *CustomerHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, err := h.customers.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	label := c.Name
	if label == "" {
		label = c.Username
	}
	h.confirms.Open(w, r, confirm.Target{
		Resource: "customer",
		ID:       id,
		Label:    label,
		ReturnTo: "/customers",
	}, func(ctx context.Context) error {
		return h.customers.Delete(ctx, id)
	})
}
