package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/DukeRupert/shopdesk/internal/address"
	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/draft"
	"github.com/DukeRupert/shopdesk/internal/form"
)

// CustomerService backs the customer list and edit card. The delivery
// address cascade is only active for existing customers.
type CustomerService struct {
	api       Records[domain.Customer]
	drafts    draft.Store
	uploads   *UploadService
	resolvers *address.Registry
	logger    *slog.Logger
}

// NewCustomerService creates a CustomerService.
func NewCustomerService(customers Records[domain.Customer], drafts draft.Store, uploads *UploadService, resolvers *address.Registry, logger *slog.Logger) *CustomerService {
	return &CustomerService{
		api:       customers,
		drafts:    drafts,
		uploads:   uploads,
		resolvers: resolvers,
		logger:    logger,
	}
}

// List returns one page of customers.
func (s *CustomerService) List(ctx context.Context, params domain.ListParams) (domain.ListResponse[domain.Customer], error) {
	return s.api.List(ctx, params)
}

// Get returns one customer.
func (s *CustomerService) Get(ctx context.Context, id string) (domain.Customer, error) {
	return s.api.Get(ctx, id)
}

// Open starts a draft for the edit card, seeded with the stored address,
// and loads the option lists that selection needs.
func (s *CustomerService) Open(ctx context.Context, id string) (draft.Draft, form.CustomerForm, [3]address.Field, error) {
	const op = "customer.open"

	d := draft.Draft{Kind: draft.KindCustomer, RecordID: id}
	var f form.CustomerForm
	if id != "" {
		c, err := s.api.Get(ctx, id)
		if err != nil {
			return draft.Draft{}, form.CustomerForm{}, [3]address.Field{}, err
		}
		d.Address = c.DeliveryInfo.Address.Selection()
		f = form.CustomerFormFrom(c)
	}

	created, err := s.drafts.Create(ctx, d)
	if err != nil {
		return draft.Draft{}, form.CustomerForm{}, [3]address.Field{}, domain.Internal(err, op, "failed to open form")
	}
	fields := s.resolver(created).Sync(ctx, created.Address)
	return created, f, fields, nil
}

// SelectAddress records a cascade choice and returns the options every
// level now offers. Descendant codes are kept even if they no longer
// belong to the new parent.
//
// The returned selection is the draft as stored when the options were
// read, so a slower request that raced a newer choice reports the newer
// choice and never pairs it with another parent's options.
func (s *CustomerService) SelectAddress(ctx context.Context, draftID uuid.UUID, level domain.AddressLevel, code string) (domain.AddressSelection, [3]address.Field, error) {
	const op = "customer.select_address"

	saved, err := s.uploads.Update(ctx, draftID, op, func(d *draft.Draft) error {
		if d.Kind != draft.KindCustomer {
			return domain.Invalid(op, "This form has no address.")
		}
		d.Address = d.Address.With(level, code)
		return nil
	})
	if err != nil {
		return domain.AddressSelection{}, [3]address.Field{}, err
	}

	r := s.resolver(saved)
	r.Sync(ctx, saved.Address)

	current, err := s.uploads.Draft(ctx, draftID)
	if err != nil {
		return domain.AddressSelection{}, [3]address.Field{}, err
	}
	return current.Address, address.Align(current.Address, r.Fields()), nil
}

// Fields returns the cascade state of a draft without fetching.
func (s *CustomerService) Fields(d draft.Draft) [3]address.Field {
	return s.resolver(d).Fields()
}

// Save validates the card and updates, or creates, the customer.
func (s *CustomerService) Save(ctx context.Context, draftID uuid.UUID, f form.CustomerForm) (domain.Customer, error) {
	d, err := s.uploads.Draft(ctx, draftID)
	if err != nil {
		return domain.Customer{}, err
	}

	f.Existing = !d.IsNew()
	upd, err := f.Validate()
	if err != nil {
		return domain.Customer{}, err
	}

	var saved domain.Customer
	if d.IsNew() {
		saved, err = s.api.Add(ctx, upd)
	} else {
		sel := s.resolver(d).Clean(upd.DeliveryInfo.Address.Selection())
		upd.DeliveryInfo.Address = withSelection(upd.DeliveryInfo.Address, sel)
		saved, err = s.api.Update(ctx, d.RecordID, upd)
	}
	if err != nil {
		return domain.Customer{}, err
	}

	s.resolvers.Drop(d.ID.String())
	if err := s.uploads.Discard(ctx, d); err != nil {
		s.logger.Warn("failed to discard customer draft", "draft_id", d.ID, "error", err)
	}
	return saved, nil
}

// Delete removes a customer.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	_, err := s.api.Delete(ctx, id)
	return err
}

func (s *CustomerService) resolver(d draft.Draft) *address.Resolver {
	return s.resolvers.Get(d.ID.String(), !d.IsNew())
}

func withSelection(a domain.Address, sel domain.AddressSelection) domain.Address {
	a.Province = sel.ProvinceCode
	a.District = sel.DistrictCode
	a.Ward = sel.WardCode
	return a
}
