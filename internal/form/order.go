package form

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/DukeRupert/shopdesk/internal/domain"
)

// OrderForm holds the raw values of the order edit form.
type OrderForm struct {
	CustomerName string
	Phone        string
	Email        string
	Address      domain.Address
	Notes        string
	Amount       string
	Status       string
}

// ParseOrder reads the form's fields.
func ParseOrder(v url.Values) OrderForm {
	return OrderForm{
		CustomerName: v.Get("deliveryInfo.name"),
		Phone:        strings.TrimSpace(v.Get("deliveryInfo.phone")),
		Email:        strings.TrimSpace(v.Get("deliveryInfo.email")),
		Address:      parseAddress(v),
		Notes:        v.Get("notes"),
		Amount:       v.Get("amount"),
		Status:       strings.TrimSpace(v.Get("status")),
	}
}

// OrderFormFrom prefills the form from a stored order.
func OrderFormFrom(o domain.Order) OrderForm {
	return OrderForm{
		CustomerName: o.DeliveryInfo.Name,
		Phone:        o.DeliveryInfo.Phone,
		Email:        o.DeliveryInfo.Email,
		Address:      o.DeliveryInfo.Address,
		Notes:        o.Notes,
		Amount:       strconv.Itoa(o.Amount),
		Status:       string(o.Status),
	}
}

// Validate returns the update payload or the field errors. Everything but
// notes is required.
func (f OrderForm) Validate() (domain.OrderUpdate, error) {
	c := newChecker("order.validate")

	name := cleanText(f.CustomerName)
	c.required("deliveryInfo.name", name)
	c.maxLength("deliveryInfo.name", name)

	c.required("deliveryInfo.phone", f.Phone)
	c.phone("deliveryInfo.phone", f.Phone)

	c.required("deliveryInfo.email", f.Email)
	c.email("deliveryInfo.email", f.Email)

	addr := cleanAddress(f.Address)
	for _, p := range []struct{ field, value string }{
		{FieldStreet, addr.Street},
		{FieldWard, addr.Ward},
		{FieldDistrict, addr.District},
		{FieldProvince, addr.Province},
	} {
		c.required(p.field, p.value)
		c.maxLength(p.field, p.value)
	}

	notes := cleanText(f.Notes)
	c.maxLength("notes", notes)

	// Any whole number; adjustments may be negative.
	amount := c.integer("amount", f.Amount, math.MinInt)

	c.required("status", f.Status)
	status, err := domain.ParseOrderStatus(f.Status)
	if err != nil {
		c.fail("status", "Unknown order status")
	}

	if err := c.err(); err != nil {
		return domain.OrderUpdate{}, err
	}
	return domain.OrderUpdate{
		DeliveryInfo: domain.DeliveryInfo{
			Name:    name,
			Phone:   f.Phone,
			Email:   f.Email,
			Address: addr,
		},
		Notes:  notes,
		Amount: amount,
		Status: status,
	}, nil
}
