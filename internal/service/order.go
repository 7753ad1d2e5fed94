package service

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/form"
)

// OrderService backs the order list and edit form.
type OrderService struct {
	api    Records[domain.Order]
	logger *slog.Logger
}

// NewOrderService creates an OrderService.
func NewOrderService(orders Records[domain.Order], logger *slog.Logger) *OrderService {
	return &OrderService{api: orders, logger: logger}
}

// List returns one page of orders.
func (s *OrderService) List(ctx context.Context, params domain.ListParams) (domain.ListResponse[domain.Order], error) {
	return s.api.List(ctx, params)
}

// Get returns one order.
func (s *OrderService) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.api.Get(ctx, id)
}

// Update validates the form and saves it. An invalid form never reaches
// the API.
func (s *OrderService) Update(ctx context.Context, id string, f form.OrderForm) (domain.Order, error) {
	upd, err := f.Validate()
	if err != nil {
		s.logger.Debug("order form rejected", "order_id", id, "error", err)
		return domain.Order{}, err
	}
	return s.api.Update(ctx, id, upd)
}

// Delete removes an order.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	_, err := s.api.Delete(ctx, id)
	return err
}
