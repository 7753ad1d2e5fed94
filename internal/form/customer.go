package form

import (
	"net/url"
	"strings"

	"github.com/DukeRupert/shopdesk/internal/domain"
)

// Field paths of the delivery address, shared with the order form.
const (
	FieldStreet   = "deliveryInfo.address.street"
	FieldWard     = "deliveryInfo.address.ward"
	FieldDistrict = "deliveryInfo.address.district"
	FieldProvince = "deliveryInfo.address.province"
)

// AddressFieldName returns the input name of a cascade level.
func AddressFieldName(level domain.AddressLevel) string {
	switch level {
	case domain.LevelProvince:
		return FieldProvince
	case domain.LevelDistrict:
		return FieldDistrict
	default:
		return FieldWard
	}
}

// CustomerForm holds the raw values of the customer edit card. The
// address block is only shown, and only read, for existing customers.
type CustomerForm struct {
	Existing bool

	Username string
	Name     string
	Phone    string
	Email    string

	DeliveryName  string
	DeliveryPhone string
	DeliveryEmail string
	Address       domain.Address
}

// ParseCustomer reads the card's fields.
func ParseCustomer(v url.Values, existing bool) CustomerForm {
	f := CustomerForm{
		Existing:      existing,
		Username:      v.Get("username"),
		Name:          v.Get("name"),
		Phone:         strings.TrimSpace(v.Get("phone")),
		Email:         strings.TrimSpace(v.Get("email")),
		DeliveryName:  v.Get("deliveryInfo.name"),
		DeliveryPhone: strings.TrimSpace(v.Get("deliveryInfo.phone")),
		DeliveryEmail: strings.TrimSpace(v.Get("deliveryInfo.email")),
	}
	if existing {
		f.Address = parseAddress(v)
	}
	return f
}

// CustomerFormFrom prefills the card from a stored customer.
func CustomerFormFrom(c domain.Customer) CustomerForm {
	return CustomerForm{
		Existing:      c.ID != "",
		Username:      c.Username,
		Name:          c.Name,
		Phone:         c.Phone,
		Email:         c.Email,
		DeliveryName:  c.DeliveryInfo.Name,
		DeliveryPhone: c.DeliveryInfo.Phone,
		DeliveryEmail: c.DeliveryInfo.Email,
		Address:       c.DeliveryInfo.Address,
	}
}

// Validate returns the update payload or the field errors. Every field
// is optional; present values must be well formed.
func (f CustomerForm) Validate() (domain.CustomerUpdate, error) {
	c := newChecker("customer.validate")

	name := cleanText(f.Name)
	c.maxLength("name", name)
	c.phone("phone", f.Phone)
	c.email("email", f.Email)

	deliveryName := cleanText(f.DeliveryName)
	c.maxLength("deliveryInfo.name", deliveryName)
	c.phone("deliveryInfo.phone", f.DeliveryPhone)
	c.email("deliveryInfo.email", f.DeliveryEmail)

	var addr domain.Address
	if f.Existing {
		addr = cleanAddress(f.Address)
		c.maxLength(FieldStreet, addr.Street)
		c.maxLength(FieldWard, addr.Ward)
		c.maxLength(FieldDistrict, addr.District)
		c.maxLength(FieldProvince, addr.Province)
	}

	if err := c.err(); err != nil {
		return domain.CustomerUpdate{}, err
	}
	return domain.CustomerUpdate{
		Name:  name,
		Phone: f.Phone,
		Email: f.Email,
		DeliveryInfo: domain.DeliveryInfo{
			Name:    deliveryName,
			Phone:   f.DeliveryPhone,
			Email:   f.DeliveryEmail,
			Address: addr,
		},
	}, nil
}

func parseAddress(v url.Values) domain.Address {
	return domain.Address{
		Street:   v.Get(FieldStreet),
		Ward:     strings.TrimSpace(v.Get(FieldWard)),
		District: strings.TrimSpace(v.Get(FieldDistrict)),
		Province: strings.TrimSpace(v.Get(FieldProvince)),
	}
}

func cleanAddress(a domain.Address) domain.Address {
	a.Street = cleanText(a.Street)
	return a
}
