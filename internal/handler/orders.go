package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/shopdesk/internal/catalog"
	"github.com/DukeRupert/shopdesk/internal/confirm"
	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/form"
	"github.com/DukeRupert/shopdesk/internal/service"
)

// OrderHandler serves the order list and the order edit form.
//
// Routes handled:
// - GET  /orders              -> Index
// - GET  /orders/{id}         -> Show
// - POST /orders/{id}         -> Update
// - GET  /orders/{id}/delete  -> ConfirmDelete (modal)
type OrderHandler struct {
	orders   *service.OrderService
	statuses *catalog.Catalog
	confirms *ConfirmHandler
	renderer TemplateRenderer
	logger   *slog.Logger
	isSecure bool
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(
	orders *service.OrderService,
	statuses *catalog.Catalog,
	confirms *ConfirmHandler,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		statuses: statuses,
		confirms: confirms,
		renderer: renderer,
		logger:   logger,
		isSecure: isSecure,
	}
}

// RegisterRoutes registers all order routes with the provided mux.
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /orders", requireUser(http.HandlerFunc(h.Index)))
	mux.Handle("GET /orders/{id}", requireUser(http.HandlerFunc(h.Show)))
	mux.Handle("POST /orders/{id}", requireUser(http.HandlerFunc(h.Update)))
	mux.Handle("GET /orders/{id}/delete", requireUser(http.HandlerFunc(h.ConfirmDelete)))
}

// OrderListData is passed to the orders page.
type OrderListData struct {
	Page
	Orders     []domain.Order
	Params     domain.ListParams
	Status     string
	Statuses   []catalog.Status
	Pagination PaginationData
}

// OrderFormData is passed to the order_form page.
type OrderFormData struct {
	Page
	Order  domain.Order
	Form   form.OrderForm
	Errors *domain.ValidationError
}

// Index renders one page of orders.
//
// Query Parameters:
// - page, limit, search, orderBy: as for every list
// - status: only orders in this status; unknown values are ignored
func (h *OrderHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := newPage(w, r, h.isSecure)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := parseListParams(r)
	status := ""
	if s, err := domain.ParseOrderStatus(r.URL.Query().Get("status")); err == nil {
		status = string(s)
		params.Filters = map[string]string{"status": status}
	}

	list, err := h.orders.List(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	pagination := newPagination(params, list.Total)
	if status != "" {
		pagination.Query = joinQuery(pagination.Query, "status="+status)
	}

	h.renderer.RenderHTTP(w, "orders", OrderListData{
		Page:       page,
		Orders:     list.Data,
		Params:     params,
		Status:     status,
		Statuses:   h.statuses.Statuses(),
		Pagination: pagination,
	})
}

// Show renders the edit form of an order.
func (h *OrderHandler) Show(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.renderForm(w, r, http.StatusOK, o, form.OrderFormFrom(o), nil)
}

// Update validates the form and saves the order. An invalid form, for
// example a malformed email, is re-rendered and never sent to the API.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("order.update", "Invalid form submission. Please try again."))
		return
	}

	f := form.ParseOrder(r.PostForm)
	saved, err := h.orders.Update(r.Context(), id, f)
	if err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		h.renderForm(w, r, http.StatusUnprocessableEntity, domain.Order{ID: id}, f, verr)
		return
	}

	h.logger.Info("order saved", "order_id", saved.ID, "status", saved.Status)
	redirect(w, r, withMarker("/orders/"+id, "saved"))
}

func (h *OrderHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, o domain.Order, f form.OrderForm, verr *domain.ValidationError) {
	page, err := newPage(w, r, h.isSecure)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.renderer.RenderHTTPStatus(w, status, "order_form", OrderFormData{
		Page:   page,
		Order:  o,
		Form:   f,
		Errors: verr,
	})
}

// ConfirmDelete opens the delete dialog for an order.
func (h *OrderHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	label := "Order " + id
	if o.DeliveryInfo.Name != "" {
		label = "Order of " + o.DeliveryInfo.Name
	}
	h.confirms.Open(w, r, confirm.Target{
		Resource: "order",
		ID:       id,
		Label:    label,
		ReturnTo: "/orders",
	}, func(ctx context.Context) error {
		return h.orders.Delete(ctx, id)
	})
}

func joinQuery(a, b string) string {
	if a == "" {
		return b
	}
	return a + "&" + b
}
