package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/shopdesk/internal/api"
	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/draft"
	"github.com/DukeRupert/shopdesk/internal/form"
	"github.com/DukeRupert/shopdesk/internal/upload"
)

// CategoryTTL is how long the category list is reused.
const CategoryTTL = time.Hour

// ProductAPI is the REST API surface for products.
type ProductAPI interface {
	Records[domain.Product]
	AddWithImages(ctx context.Context, payload domain.ProductPayload, files []api.FilePart) (domain.Product, error)
}

// CategorySource lists product categories.
type CategorySource interface {
	Categories(ctx context.Context) ([]domain.Category, error)
}

// ProductService backs the product list and the add/edit modal.
type ProductService struct {
	api        ProductAPI
	categories CategorySource
	drafts     draft.Store
	uploads    *UploadService
	logger     *slog.Logger

	catMu      sync.Mutex
	catCache   []domain.Category
	catFetched time.Time
	now        func() time.Time
}

// NewProductService creates a ProductService.
func NewProductService(products ProductAPI, categories CategorySource, drafts draft.Store, uploads *UploadService, logger *slog.Logger) *ProductService {
	return &ProductService{
		api:        products,
		categories: categories,
		drafts:     drafts,
		uploads:    uploads,
		logger:     logger,
		now:        time.Now,
	}
}

// List returns one page of products.
func (s *ProductService) List(ctx context.Context, params domain.ListParams) (domain.ListResponse[domain.Product], error) {
	return s.api.List(ctx, params)
}

// Get returns one product.
func (s *ProductService) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.api.Get(ctx, id)
}

// Categories returns the category options. A failed fetch yields an empty
// list so the modal still opens.
func (s *ProductService) Categories(ctx context.Context) []domain.Category {
	s.catMu.Lock()
	defer s.catMu.Unlock()

	if s.catCache != nil && s.now().Sub(s.catFetched) < CategoryTTL {
		return s.catCache
	}
	cats, err := s.categories.Categories(ctx)
	if err != nil {
		s.logger.Warn("failed to load categories", "error", err)
		return []domain.Category{}
	}
	s.catCache = cats
	s.catFetched = s.now()
	return cats
}

// Open starts a draft for the modal. An empty id opens the add form;
// otherwise the product's stored images seed the upload list.
func (s *ProductService) Open(ctx context.Context, id string) (draft.Draft, form.ProductForm, error) {
	const op = "product.open"

	d := draft.Draft{Kind: draft.KindProduct, RecordID: id}
	var f form.ProductForm
	if id != "" {
		p, err := s.api.Get(ctx, id)
		if err != nil {
			return draft.Draft{}, form.ProductForm{}, err
		}
		d.Files = productFiles(p)
		f = form.ProductFormFrom(p)
	}

	created, err := s.drafts.Create(ctx, d)
	if err != nil {
		return draft.Draft{}, form.ProductForm{}, domain.Internal(err, op, "failed to open form")
	}
	return created, f, nil
}

// Save validates the form and creates or updates the product. On success
// the draft and its staged files are discarded.
func (s *ProductService) Save(ctx context.Context, draftID uuid.UUID, f form.ProductForm) (domain.Product, error) {
	const op = "product.save"

	d, err := s.uploads.Draft(ctx, draftID)
	if err != nil {
		return domain.Product{}, err
	}

	payload, verr := f.Validate()
	if err := s.uploads.Control(&d).Validate(d.Files); err != nil {
		verr = mergeValidation(verr, op, "images", err.Error())
	}
	if verr != nil {
		return domain.Product{}, verr
	}

	var saved domain.Product
	if d.IsNew() {
		saved, err = s.add(ctx, payload, d.Files)
	} else {
		saved, err = s.api.Update(ctx, d.RecordID, payload)
	}
	if err != nil {
		return domain.Product{}, err
	}

	if err := s.uploads.Discard(ctx, d); err != nil {
		s.logger.Warn("failed to discard product draft", "draft_id", d.ID, "error", err)
	}
	return saved, nil
}

// Delete removes a product.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	_, err := s.api.Delete(ctx, id)
	return err
}

func (s *ProductService) add(ctx context.Context, payload domain.ProductPayload, files upload.List) (domain.Product, error) {
	readers, items, err := s.uploads.OpenLocals(ctx, files)
	if err != nil {
		return domain.Product{}, err
	}
	defer closeAll(readers)

	parts := make([]api.FilePart, len(items))
	for i, it := range items {
		parts[i] = api.FilePart{Name: it.Name, ContentType: it.ContentType, Body: readers[i]}
	}
	return s.api.AddWithImages(ctx, payload, parts)
}

// productFiles lists the images a product already has. Products without an
// image list fall back to the cover image.
func productFiles(p domain.Product) upload.List {
	if len(p.Images) > 0 {
		out := make(upload.List, 0, len(p.Images))
		for _, m := range p.Images {
			out = append(out, upload.RemoteFile(m.ID, m.SecureURL, m.Name, m.Bytes))
		}
		return out
	}
	if p.Img != "" {
		return upload.List{upload.RemoteFile("", p.Img, "cover", 0)}
	}
	return upload.List{}
}
