package domain

import (
	"fmt"
	"time"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

// Wire values used by the REST API. Delivered is spelled the way the API spells it.
const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusDelivered  OrderStatus = "DELIVERIED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
)

// OrderStatuses lists every status in display order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusDelivered,
		OrderStatusRefunded,
		OrderStatusCanceled,
	}
}

// ParseOrderStatus validates a status string.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range OrderStatuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Order is a placed order as returned by the REST API.
type Order struct {
	ID           string       `json:"_id"`
	UserID       string       `json:"userId,omitempty"`
	DeliveryInfo DeliveryInfo `json:"deliveryInfo"`
	Notes        string       `json:"notes"`
	Amount       int          `json:"amount"`
	Status       OrderStatus  `json:"status"`
	Products     []OrderLine  `json:"products,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// OrderLine is one product entry of an order.
type OrderLine struct {
	ProductID string `json:"productId"`
	Title     string `json:"title,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price,omitempty"`
}

// OrderUpdate is the partial payload sent when an order is edited.
type OrderUpdate struct {
	DeliveryInfo DeliveryInfo `json:"deliveryInfo"`
	Notes        string       `json:"notes"`
	Amount       int          `json:"amount"`
	Status       OrderStatus  `json:"status"`
}
