package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/DukeRupert/shopdesk/internal/confirm"
	"github.com/DukeRupert/shopdesk/internal/csrf"
	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/draft"
	"github.com/DukeRupert/shopdesk/internal/form"
	"github.com/DukeRupert/shopdesk/internal/service"
	"github.com/DukeRupert/shopdesk/internal/view"
)

// ProductHandler serves the product list and its add/edit modal.
//
// Routes handled:
// - GET  /products                 -> Index
// - GET  /products/new             -> New (modal)
// - GET  /products/{id}/edit       -> Edit (modal)
// - POST /products/drafts/{draft}  -> Save
// - GET  /products/{id}/delete     -> ConfirmDelete (modal)
type ProductHandler struct {
	products *service.ProductService
	uploads  *service.UploadService
	confirms *ConfirmHandler
	renderer TemplateRenderer
	logger   *slog.Logger
	isSecure bool
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(
	products *service.ProductService,
	uploads *service.UploadService,
	confirms *ConfirmHandler,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *ProductHandler {
	return &ProductHandler{
		products: products,
		uploads:  uploads,
		confirms: confirms,
		renderer: renderer,
		logger:   logger,
		isSecure: isSecure,
	}
}

// RegisterRoutes registers all product routes with the provided mux.
func (h *ProductHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /products", requireUser(http.HandlerFunc(h.Index)))
	mux.Handle("GET /products/new", requireUser(http.HandlerFunc(h.New)))
	mux.Handle("GET /products/{id}/edit", requireUser(http.HandlerFunc(h.Edit)))
	mux.Handle("POST /products/drafts/{draft}", requireUser(http.HandlerFunc(h.Save)))
	mux.Handle("GET /products/{id}/delete", requireUser(http.HandlerFunc(h.ConfirmDelete)))
}

// =============================================================================
// Template Data Types
// =============================================================================

// ProductListData is passed to the products page.
type ProductListData struct {
	Page
	Products   []domain.Product
	Params     domain.ListParams
	Pagination PaginationData
}

// ProductFormData is passed to the product_form partial.
type ProductFormData struct {
	CSRFToken  string
	DraftID    string
	IsNew      bool
	Form       form.ProductForm
	Categories []domain.Category
	Files      templ.Component
	Errors     *domain.ValidationError
}

// =============================================================================
// GET /products - List
// =============================================================================

// Index renders one page of products.
//
// Query Parameters:
// - page, limit: pagination
// - search: free text filter
// - orderBy: sort key passed to the API
func (h *ProductHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := newPage(w, r, h.isSecure)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := parseListParams(r)
	list, err := h.products.List(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.renderer.RenderHTTP(w, "products", ProductListData{
		Page:       page,
		Products:   list.Data,
		Params:     params,
		Pagination: newPagination(params, list.Total),
	})
}

// =============================================================================
// Modal
// =============================================================================

// New opens an empty product draft and renders the modal.
func (h *ProductHandler) New(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, "")
}

// Edit opens a draft seeded with the product and its images.
func (h *ProductHandler) Edit(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, r.PathValue("id"))
}

func (h *ProductHandler) open(w http.ResponseWriter, r *http.Request, id string) {
	d, f, err := h.products.Open(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.renderForm(w, r, d, f, nil)
}

// Save validates the modal and creates or updates the product. Field
// errors re-render the modal; API failures are shown as an alert and the
// modal stays open.
func (h *ProductHandler) Save(w http.ResponseWriter, r *http.Request) {
	draftID, err := uuid.Parse(r.PathValue("draft"))
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}
	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("product.save", "Invalid form submission. Please try again."))
		return
	}

	f := form.ParseProduct(r.PostForm)
	saved, err := h.products.Save(r.Context(), draftID, f)
	if err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		d, derr := h.uploads.Draft(r.Context(), draftID)
		if derr != nil {
			ErrorResponse(w, r, h.logger, derr)
			return
		}
		h.renderForm(w, r, d, f, verr)
		return
	}

	marker := "saved"
	if r.FormValue("new") == "1" {
		marker = "created"
	}
	h.logger.Info("product saved", "product_id", saved.ID)
	redirect(w, r, withMarker("/products", marker))
}

func (h *ProductHandler) renderForm(w http.ResponseWriter, r *http.Request, d draft.Draft, f form.ProductForm, verr *domain.ValidationError) {
	token, err := csrf.EnsureToken(w, r, h.isSecure)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	ctrl := h.uploads.Control(&d)
	h.renderer.RenderPartial(w, "product_form", ProductFormData{
		CSRFToken:  token,
		DraftID:    d.ID.String(),
		IsNew:      d.IsNew(),
		Form:       f,
		Categories: h.products.Categories(r.Context()),
		Files: view.FileList(view.FileListProps{
			DraftID:  d.ID.String(),
			Entries:  h.uploads.Entries(d),
			Multiple: ctrl.Multiple,
			MaxBytes: h.uploads.MaxBytes(),
			Error:    verr.Field("images"),
			ReadOnly: !d.FilesEditable(),
		}),
		Errors: verr,
	})
}

// =============================================================================
// GET /products/{id}/delete - Confirm
// =============================================================================

// ConfirmDelete opens the delete dialog for a product.
func (h *ProductHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.confirms.Open(w, r, confirm.Target{
		Resource: "product",
		ID:       id,
		Label:    p.Title,
		ReturnTo: "/products",
	}, func(ctx context.Context) error {
		return h.products.Delete(ctx, id)
	})
}
